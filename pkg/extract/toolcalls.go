package extract

import (
	"sort"
	"strings"

	"github.com/valyala/fastjson"
)

// documentToolCalls collects choices[].message.tool_calls followed by
// top-level tool_calls, in encounter order.
func documentToolCalls(v *fastjson.Value) []ToolCall {
	var calls []ToolCall
	for _, choice := range array(v.Get("choices")) {
		for _, entry := range array(choice.Get("message", "tool_calls")) {
			if tc, ok := toolCallFrom(entry); ok {
				calls = append(calls, tc)
			}
		}
	}
	for _, entry := range array(v.Get("tool_calls")) {
		if tc, ok := toolCallFrom(entry); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// toolCallFrom reads name and arguments from entry.function, or from entry
// itself when there is no function object. Non-string arguments are kept
// as compact JSON text.
func toolCallFrom(entry *fastjson.Value) (ToolCall, bool) {
	fn := entry.Get("function")
	if !object(fn) {
		fn = entry
	}
	if !object(fn) {
		return ToolCall{}, false
	}

	tc := ToolCall{Name: str(fn.Get("name"))}
	if args := fn.Get("arguments"); args != nil {
		switch args.Type() {
		case fastjson.TypeString:
			tc.Arguments = str(args)
		case fastjson.TypeNull:
		default:
			tc.Arguments = args.String()
		}
	}
	return tc, tc.Name != "" || tc.Arguments != ""
}

// accumulator reassembles tool calls whose name and arguments arrive
// fragmented across stream events, keyed by call index.
type accumulator struct {
	calls map[int]*partialCall
}

type partialCall struct {
	name string
	args strings.Builder
}

func newAccumulator() *accumulator {
	return &accumulator{calls: make(map[int]*partialCall)}
}

// add merges one delta fragment. The first non-empty name for an index
// wins; argument fragments are concatenated in arrival order.
func (a *accumulator) add(index int, name, args string) {
	pc, ok := a.calls[index]
	if !ok {
		pc = &partialCall{}
		a.calls[index] = pc
	}
	if pc.name == "" {
		pc.name = name
	}
	pc.args.WriteString(args)
}

// result returns the assembled calls in ascending index order, dropping
// indices that never received a name or arguments.
func (a *accumulator) result() []ToolCall {
	indices := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	var calls []ToolCall
	for _, i := range indices {
		pc := a.calls[i]
		tc := ToolCall{Name: pc.name, Arguments: pc.args.String()}
		if tc.Name != "" || tc.Arguments != "" {
			calls = append(calls, tc)
		}
	}
	return calls
}

func streamToolCalls(body []byte) []ToolCall {
	p := parserPool.Get()
	defer parserPool.Put(p)

	acc := newAccumulator()
	eachEvent(body, func(payload []byte) {
		ev, err := p.ParseBytes(payload)
		if err != nil {
			return
		}
		for _, choice := range array(ev.Get("choices")) {
			for pos, delta := range array(choice.Get("delta", "tool_calls")) {
				index := pos
				if iv := delta.Get("index"); iv != nil && iv.Type() == fastjson.TypeNumber {
					if n, err := iv.Int(); err == nil {
						index = n
					}
				}
				acc.add(index, str(delta.Get("function", "name")), str(delta.Get("function", "arguments")))
			}
		}
	})
	return acc.result()
}
