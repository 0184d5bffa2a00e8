package turn

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/llm"
)

// streamAccumulator folds streaming deltas into a complete choice. Tool call
// fragments arriving across chunks are stitched back together by the delta
// index; the id and function name arrive only on a call's first fragment.
type streamAccumulator struct {
	choices map[int]*choiceAccumulator
}

func newStreamAccumulator() *streamAccumulator {
	return &streamAccumulator{
		choices: make(map[int]*choiceAccumulator),
	}
}

func (a *streamAccumulator) Apply(delta *llm.ChatCompletionDelta) {
	if delta == nil {
		return
	}
	for _, choice := range delta.Choices {
		a.ensure(choice.Index).apply(choice)
	}
}

func (a *streamAccumulator) ensure(index int) *choiceAccumulator {
	if acc, ok := a.choices[index]; ok {
		return acc
	}
	acc := &choiceAccumulator{
		role:      "assistant",
		toolCalls: make(map[int]*toolCallAccumulator),
		idIndex:   make(map[string]int),
	}
	a.choices[index] = acc
	return acc
}

// Result builds the first choice, or nil when the stream carried nothing.
func (a *streamAccumulator) Result() *llm.ChatCompletionChoice {
	acc, ok := a.choices[0]
	if !ok {
		return nil
	}
	choice := acc.build(0)
	return &choice
}

type choiceAccumulator struct {
	role         string
	finishReason string
	content      strings.Builder
	toolCalls    map[int]*toolCallAccumulator
	toolOrder    []int
	idIndex      map[string]int
}

func (c *choiceAccumulator) apply(choice llm.ChatCompletionDeltaChoice) {
	if choice.Delta.Role != "" {
		c.role = choice.Delta.Role
	}
	if choice.Delta.Content != "" {
		c.content.WriteString(choice.Delta.Content)
	}
	for pos, call := range choice.Delta.ToolCalls {
		c.addOrUpdateToolCall(pos, call)
	}
	if choice.FinishReason != "" {
		c.finishReason = choice.FinishReason
	}
}

func (c *choiceAccumulator) addOrUpdateToolCall(pos int, call llm.ToolCallDelta) {
	index := c.resolveIndex(pos, call)

	builder, ok := c.toolCalls[index]
	if !ok {
		builder = &toolCallAccumulator{}
		c.toolCalls[index] = builder
		c.toolOrder = append(c.toolOrder, index)
	}

	if call.ID != "" {
		builder.call.ID = call.ID
		c.idIndex[call.ID] = index
	}
	if call.Type != "" {
		builder.call.Type = call.Type
	}
	if call.Function.Name != "" {
		builder.call.Function.Name = call.Function.Name
	}
	if len(call.Function.Arguments) > 0 {
		builder.args.Write(call.Function.Arguments)
	}
}

// resolveIndex keys a fragment to its call. The explicit delta index wins;
// without one, a known id routes to its call, and a bare argument fragment
// lands on the call at the same position in the delta's list.
func (c *choiceAccumulator) resolveIndex(pos int, call llm.ToolCallDelta) int {
	if call.Index != nil {
		return *call.Index
	}
	if call.ID != "" {
		if index, ok := c.idIndex[call.ID]; ok {
			return index
		}
		return len(c.toolOrder) + pos
	}
	if pos < len(c.toolOrder) {
		return c.toolOrder[pos]
	}
	return len(c.toolOrder) + pos
}

func (c *choiceAccumulator) build(index int) llm.ChatCompletionChoice {
	message := llm.ChatMessage{
		Role:    c.role,
		Content: c.content.String(),
	}
	if len(c.toolOrder) > 0 {
		message.ToolCalls = make([]llm.ToolCall, 0, len(c.toolOrder))
		for _, callIndex := range c.toolOrder {
			builder := c.toolCalls[callIndex]
			call := builder.call
			if call.ID == "" {
				// No fragment ever carried an id; synthesize one so result
				// pairing stays stable.
				call.ID = fmt.Sprintf("tool_%d", callIndex)
			}
			if builder.args.Len() > 0 {
				call.Function.Arguments = json.RawMessage(builder.args.String())
			}
			message.ToolCalls = append(message.ToolCalls, call)
		}
	}

	return llm.ChatCompletionChoice{
		Index:        index,
		Message:      message,
		FinishReason: c.finishReason,
	}
}

type toolCallAccumulator struct {
	call llm.ToolCall
	args strings.Builder
}
