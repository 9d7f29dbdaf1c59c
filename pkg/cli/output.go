package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"mercator-hq/loupe/pkg/logstore"
)

// OutputFormat selects how `loupe logs` prints records.
type OutputFormat string

const (
	// FormatText is one human-readable line per record (default).
	FormatText OutputFormat = "text"
	// FormatJSON is the stored NDJSON line, unchanged.
	FormatJSON OutputFormat = "json"
)

// contentWidth bounds the content excerpt in text output.
const contentWidth = 120

// ParseFormat parses a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", NewConfigError("format", fmt.Sprintf("unknown output format %q (want text or json)", s))
	}
}

// RecordWriter prints stored log records.
type RecordWriter interface {
	WriteRecord(line json.RawMessage) error
}

// NewRecordWriter returns a RecordWriter for format writing to w.
func NewRecordWriter(w io.Writer, format OutputFormat) RecordWriter {
	if format == FormatJSON {
		return &jsonWriter{w: w}
	}
	return &textWriter{w: w}
}

type jsonWriter struct {
	w io.Writer
}

func (j *jsonWriter) WriteRecord(line json.RawMessage) error {
	if _, err := j.w.Write(line); err != nil {
		return err
	}
	_, err := io.WriteString(j.w, "\n")
	return err
}

type textWriter struct {
	w io.Writer
}

// WriteRecord prints one summary line per record, followed by an indented
// line per tool call. Lines that do not decode are printed as-is.
func (t *textWriter) WriteRecord(line json.RawMessage) error {
	e, err := logstore.Decode(line)
	if err != nil {
		_, err = fmt.Fprintf(t.w, "%s\n", line)
		return err
	}

	switch e.Kind {
	case logstore.KindRequest:
		_, err = fmt.Fprintf(t.w, "%s  %-8s  %s  %s -> %s\n",
			e.Timestamp, e.Kind, e.CorrelationID, e.Route, e.Target)
	case logstore.KindResponse:
		_, err = fmt.Fprintf(t.w, "%s  %-8s  %s  %s  %d  %s\n",
			e.Timestamp, e.Kind, e.CorrelationID, e.Route, e.Status, excerpt(e.Content, contentWidth))
		for _, tc := range e.ToolCalls {
			if err != nil {
				break
			}
			_, err = fmt.Fprintf(t.w, "    tool %s(%s)\n", tc.Name, excerpt(tc.Arguments, contentWidth))
		}
	default:
		_, err = fmt.Fprintf(t.w, "%s\n", line)
	}
	return err
}

// excerpt flattens s onto one line and cuts it to at most n runes.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
