package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"
	schemavalidator "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/llm"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/metrics"
)

// Gateway validates tool-call arguments against each tool's declared schema,
// invokes the capability, and normalizes the outcome into a Result the model
// can consume. Failures never escape as errors; they become structured
// results so the model can self-correct in a later round.
type Gateway struct {
	tools map[string]*registeredTool
	log   zerolog.Logger
}

type registeredTool struct {
	tool       Tool
	schema     *schemavalidator.Schema
	definition llm.ToolDefinition
}

// NewGateway compiles each tool's argument schema and builds the registry.
func NewGateway(log zerolog.Logger, tools ...Tool) (*Gateway, error) {
	g := &Gateway{
		tools: make(map[string]*registeredTool, len(tools)),
		log:   log.With().Str("component", "tool-gateway").Logger(),
	}
	for _, t := range tools {
		reg, err := register(t)
		if err != nil {
			return nil, fmt.Errorf("register tool %s: %w", t.Name(), err)
		}
		g.tools[t.Name()] = reg
	}
	return g, nil
}

func register(t Tool) (*registeredTool, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	raw, err := json.Marshal(reflector.Reflect(t.Args()))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	compiled, err := schemavalidator.CompileString(t.Name()+".schema.json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	var parameters map[string]any
	if err := json.Unmarshal(raw, &parameters); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	return &registeredTool{
		tool:   t,
		schema: compiled,
		definition: llm.ToolDefinition{
			Type: "function",
			Function: llm.ToolFunctionSchema{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  parameters,
			},
		},
	}, nil
}

// Definitions returns the OpenAI-compatible declarations of every tool.
func (g *Gateway) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(g.tools))
	for _, reg := range g.tools {
		defs = append(defs, reg.definition)
	}
	return defs
}

// Invoke runs one tool call end to end: schema validation, execution, and
// error normalization. The returned Result is always non-nil.
func (g *Gateway) Invoke(ctx context.Context, callID, name string, rawArgs json.RawMessage) *Result {
	started := time.Now()
	result := g.invoke(ctx, callID, name, rawArgs)

	status := "success"
	if result.IsError() {
		status = string(result.Error.Code)
		g.log.Warn().
			Str("tool", name).
			Str("call_id", callID).
			Str("code", string(result.Error.Code)).
			Msg("tool invocation failed")
	}
	metrics.RecordToolInvocation(name, status, time.Since(started).Seconds())
	return result
}

func (g *Gateway) invoke(ctx context.Context, callID, name string, rawArgs json.RawMessage) *Result {
	result := &Result{CallID: callID, ToolName: name}

	reg, ok := g.tools[name]
	if !ok {
		result.Error = NewError(ErrCodeInvalidInput, fmt.Sprintf("unknown tool: %s", name))
		return result
	}

	if len(rawArgs) == 0 {
		rawArgs = json.RawMessage(`{}`)
	}

	var decoded any
	if err := json.Unmarshal(rawArgs, &decoded); err != nil {
		result.Error = NewError(ErrCodeInvalidInput, "tool arguments are not valid JSON")
		return result
	}
	if err := reg.schema.Validate(decoded); err != nil {
		result.Error = NewError(ErrCodeInvalidInput, validationMessage(name, err))
		return result
	}

	output, err := reg.tool.Execute(ctx, rawArgs)
	if err != nil {
		result.Error = normalizeError(err)
		return result
	}

	encoded, err := json.Marshal(output)
	if err != nil {
		result.Error = NewError(ErrCodeInternal, "tool produced an unserializable result")
		return result
	}
	result.Output = encoded
	return result
}

func normalizeError(err error) *Error {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrCodeUpstreamUnavailable, "the tool timed out; please try again later")
	}
	// Raw error text may carry hostnames or credentials; never forward it.
	return NewError(ErrCodeInternal, "an unexpected error occurred while executing the tool")
}

func validationMessage(name string, err error) string {
	var validationErr *schemavalidator.ValidationError
	if errors.As(err, &validationErr) {
		detail := validationErr.Message
		if len(validationErr.Causes) > 0 {
			detail = validationErr.Causes[0].Message
		}
		return fmt.Sprintf("invalid arguments for %s: %s", name, detail)
	}
	return fmt.Sprintf("invalid arguments for %s", name)
}
