package extract

import (
	"strings"

	"github.com/valyala/fastjson"
)

// documentContent runs the single-document probes in priority order and
// returns the first non-empty result.
func documentContent(v *fastjson.Value) string {
	probes := []func(*fastjson.Value) string{
		choicesContent,
		outputTextContent,
		topLevelContent,
		outputItemsContent,
	}
	for _, probe := range probes {
		if text := probe(v); text != "" {
			return text
		}
	}
	return ""
}

// choicesContent handles chat completions (choices[].message.content) and
// text completions (choices[].text).
func choicesContent(v *fastjson.Value) string {
	var sb strings.Builder
	for _, choice := range array(v.Get("choices")) {
		if text := str(choice.Get("message", "content")); text != "" {
			sb.WriteString(text)
			continue
		}
		sb.WriteString(str(choice.Get("text")))
	}
	return sb.String()
}

// outputTextContent handles a top-level output_text string or string array.
func outputTextContent(v *fastjson.Value) string {
	ot := v.Get("output_text")
	if ot == nil {
		return ""
	}
	if ot.Type() == fastjson.TypeString {
		return str(ot)
	}
	var sb strings.Builder
	for _, part := range array(ot) {
		sb.WriteString(str(part))
	}
	return sb.String()
}

func topLevelContent(v *fastjson.Value) string {
	return str(v.Get("content"))
}

// outputItemsContent handles response-API output arrays, collecting text
// from items of type output_text or message.
func outputItemsContent(v *fastjson.Value) string {
	var sb strings.Builder
	for _, item := range array(v.Get("output")) {
		switch str(item.Get("type")) {
		case "output_text", "message":
		default:
			continue
		}
		sb.WriteString(str(item.Get("text")))
		for _, part := range array(item.Get("content")) {
			sb.WriteString(str(part.Get("text")))
		}
	}
	return sb.String()
}

// streamContent concatenates the text fragments of every event in an SSE
// body, in arrival order.
func streamContent(body []byte) string {
	p := parserPool.Get()
	defer parserPool.Put(p)

	var sb strings.Builder
	eachEvent(body, func(payload []byte) {
		ev, err := p.ParseBytes(payload)
		if err != nil {
			return
		}
		sb.WriteString(eventContent(ev))
	})
	return sb.String()
}

// eventContent extracts the text carried by a single stream event.
// Chat-completion deltas take precedence; otherwise every text/content
// string under the event's delta objects is collected.
func eventContent(ev *fastjson.Value) string {
	choices := array(ev.Get("choices"))

	var sb strings.Builder
	for _, choice := range choices {
		sb.WriteString(str(choice.Get("delta", "content")))
	}
	if sb.Len() > 0 {
		return sb.String()
	}

	if delta := ev.Get("delta"); delta != nil {
		collectText(delta, &sb)
		return sb.String()
	}
	for _, choice := range choices {
		if delta := choice.Get("delta"); delta != nil {
			collectText(delta, &sb)
		}
	}
	return sb.String()
}

// collectText walks v depth-first in document order and appends every
// string held under a key named "text" or "content".
func collectText(v *fastjson.Value, sb *strings.Builder) {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		obj.Visit(func(key []byte, child *fastjson.Value) {
			k := string(key)
			if (k == "text" || k == "content") && child.Type() == fastjson.TypeString {
				sb.WriteString(str(child))
				return
			}
			collectText(child, sb)
		})
	case fastjson.TypeArray:
		for _, child := range array(v) {
			collectText(child, sb)
		}
	}
}
