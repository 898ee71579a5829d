package parser

import (
	"sort"
	"strings"

	"aiconfig/pkg/types"
)

// StreamCallback receives one fragment: the delta, the text accumulated so
// far for the choice, and the choice index.
type StreamCallback func(delta, accumulated string, index int)

// InferenceOptions tune one execution. Cancellation is carried by the
// context passed alongside.
type InferenceOptions struct {
	// Stream forces streaming on or off. When nil, streaming is on iff a
	// callback is set.
	Stream         *bool
	StreamCallback StreamCallback
}

// Bool returns a pointer to b, for InferenceOptions.Stream.
func Bool(b bool) *bool { return &b }

// Streaming reports whether the adapter should stream.
func (o *InferenceOptions) Streaming() bool {
	if o == nil {
		return false
	}
	if o.Stream != nil {
		return *o.Stream
	}
	return o.StreamCallback != nil
}

// StreamAccumulator collects fragments per choice index and forwards each
// one to the options' callback in arrival order.
type StreamAccumulator struct {
	cb        StreamCallback
	texts     map[int]*strings.Builder
	fragments int
}

// NewStreamAccumulator returns an accumulator for opts (which may be nil).
func NewStreamAccumulator(opts *InferenceOptions) *StreamAccumulator {
	a := &StreamAccumulator{texts: map[int]*strings.Builder{}}
	if opts != nil {
		a.cb = opts.StreamCallback
	}
	return a
}

// Add records delta for choice index. Empty deltas are ignored.
func (a *StreamAccumulator) Add(index int, delta string) {
	if delta == "" {
		return
	}
	sb, ok := a.texts[index]
	if !ok {
		sb = &strings.Builder{}
		a.texts[index] = sb
	}
	sb.WriteString(delta)
	a.fragments++
	if a.cb != nil {
		a.cb(delta, sb.String(), index)
	}
}

// Text returns the accumulated text of choice index.
func (a *StreamAccumulator) Text(index int) string {
	if sb, ok := a.texts[index]; ok {
		return sb.String()
	}
	return ""
}

// Fragments returns the number of non-empty deltas seen.
func (a *StreamAccumulator) Fragments() int { return a.fragments }

// Indexes returns the choice indexes seen, ascending.
func (a *StreamAccumulator) Indexes() []int {
	out := make([]int, 0, len(a.texts))
	for i := range a.texts {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Outputs returns one text output per choice, ascending by index. meta may
// be nil; otherwise it supplies the metadata of each choice.
func (a *StreamAccumulator) Outputs(meta func(index int) map[string]any) []types.Output {
	idx := a.Indexes()
	if len(idx) == 0 {
		idx = []int{0}
	}
	out := make([]types.Output, 0, len(idx))
	for _, i := range idx {
		var md map[string]any
		if meta != nil {
			md = meta(i)
		}
		out = append(out, types.NewResult(types.TextData(a.Text(i)), md))
	}
	return out
}

// Cancelled returns the terminal outputs of a cancelled stream, keeping the
// partial text of every choice.
func (a *StreamAccumulator) Cancelled() []types.Output {
	idx := a.Indexes()
	if len(idx) == 0 {
		return []types.Output{types.NewCancelled("")}
	}
	out := make([]types.Output, 0, len(idx))
	for _, i := range idx {
		out = append(out, types.NewCancelled(a.Text(i)))
	}
	return out
}
