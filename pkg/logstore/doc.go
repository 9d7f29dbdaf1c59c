// Package logstore persists request and response records as NDJSON.
//
// Every record is one self-contained JSON object on its own line in a single
// append-only file. Appends are serialized by the Store and issued as one
// write on an O_APPEND descriptor, so concurrent requests never interleave
// partial lines. Readers get the most recent N records back in append order;
// malformed lines are skipped.
//
// The Store also offers a bulk Clear (optionally archiving the previous
// contents with zstd), a fsnotify based Follow for tailing, and a cron driven
// Scheduler for periodic clears.
package logstore
