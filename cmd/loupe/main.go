// Loupe is an inspecting proxy for LLM command-line tools.
//
// It relays every POST to a single generative-AI API, streams the reply
// back untouched and appends a request and a response record to an NDJSON
// log that the bundled dashboard and the logs command read back.
//
// Usage:
//
//	# Start the proxy with loupe.yaml (or defaults when it is absent)
//	loupe run
//
//	# Point a different upstream behind a route prefix
//	loupe run --upstream https://api.openai.com --prefix /openai
//
//	# Print the newest records and keep following the log
//	loupe logs --limit 20 --follow
//
//	# Empty the log
//	loupe logs clear
//
//	# Check a configuration file
//	loupe validate --config loupe.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}
