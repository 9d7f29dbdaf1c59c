package extract

import "bytes"

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// eachEvent calls fn with the trimmed payload of every "data:" line in body,
// skipping empty payloads and the [DONE] terminator. Lines are split on
// "\n" and tolerate a trailing "\r".
func eachEvent(body []byte, fn func(payload []byte)) {
	for len(body) > 0 {
		var line []byte
		if i := bytes.IndexByte(body, '\n'); i >= 0 {
			line, body = body[:i], body[i+1:]
		} else {
			line, body = body, nil
		}

		line = bytes.TrimLeft(line, " \t\r")
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := bytes.TrimSpace(line[len(dataPrefix):])
		if len(payload) == 0 || bytes.Equal(payload, doneMarker) {
			continue
		}
		fn(payload)
	}
}
