package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ToolResult is the outcome of a Tool.Execute call. Text is always a string
// the model can read; a non-string handler return value is JSON-encoded
// before being wrapped here.
type ToolResult struct {
	Text    string
	IsError bool
}

// Success builds a successful ToolResult.
func Success(text string) ToolResult { return ToolResult{Text: text} }

// Error builds a failed ToolResult.
func Error(text string) ToolResult { return ToolResult{Text: text, IsError: true} }

// InputSchema is the JSON-Schema object describing a Tool's input. It is
// sent to the model verbatim via Definition, so Properties must always
// serialize as a JSON object, even when empty.
type InputSchema struct {
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required,omitempty"`
}

// MarshalJSON forces Properties to serialize as `{}` rather than `null`
// when empty, since the model endpoint requires object form.
func (s InputSchema) MarshalJSON() ([]byte, error) {
	props := s.Properties
	if props == nil {
		props = map[string]any{}
	}
	return json.Marshal(struct {
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required,omitempty"`
	}{Type: "object", Properties: props, Required: s.Required})
}

// Definition is the wire form of a tool sent to the model.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// Tool is a named callable the model may invoke through the loop.
type Tool interface {
	Name() string
	Description() string
	InputSchema() InputSchema
	Execute(ctx context.Context, input map[string]any) ToolResult
}

// definitionOf builds the wire form of any Tool from its
// Name/Description/InputSchema so individual tools don't repeat the work.
func definitionOf(t Tool) Definition {
	return Definition{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
	}
}

// Handler is the function signature FuncTool wraps. It never panics to the
// caller's surprise: FuncTool.Execute recovers and converts a panic into an
// error ToolResult.
type Handler func(ctx context.Context, input map[string]any) (any, error)

// FuncTool adapts a plain function into a Tool, the common case for
// application-defined tools.
type FuncTool struct {
	name        string
	description string
	schema      InputSchema
	handler     Handler
	compiled    *jsonschema.Schema
}

// NewFuncTool builds a FuncTool, compiling its schema once so repeated
// Execute calls validate cheaply. A schema that fails to compile is treated
// as "no validation" (logged by the caller via the returned error, if they
// choose to check NewFuncToolErr) rather than panicking at registration.
func NewFuncTool(name, description string, schema InputSchema, handler Handler) *FuncTool {
	t, _ := NewFuncToolErr(name, description, schema, handler)
	return t
}

// NewFuncToolErr is like NewFuncTool but surfaces a schema-compile failure
// instead of silently disabling validation.
func NewFuncToolErr(name, description string, schema InputSchema, handler Handler) (*FuncTool, error) {
	ft := &FuncTool{name: name, description: description, schema: schema, handler: handler}
	raw, err := json.Marshal(schema)
	if err != nil {
		return ft, fmt.Errorf("marshal schema for tool %q: %w", name, err)
	}
	compiled, err := jsonschema.CompileString(name+"#schema", string(raw))
	if err != nil {
		return ft, fmt.Errorf("compile schema for tool %q: %w", name, err)
	}
	ft.compiled = compiled
	return ft, nil
}

func (t *FuncTool) Name() string             { return t.name }
func (t *FuncTool) Description() string      { return t.description }
func (t *FuncTool) InputSchema() InputSchema { return t.schema }

// Execute validates input against the compiled schema (if any), then
// invokes the handler, recovering from panics and JSON-encoding non-string
// results. It never returns an error to the caller — failures become
// Error() ToolResults, per the Tool contract in §4.1.
func (t *FuncTool) Execute(ctx context.Context, input map[string]any) (result ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = Error(fmt.Sprintf("tool %q panicked: %v", t.name, r))
		}
	}()

	if t.compiled != nil {
		if err := t.compiled.Validate(toValidatable(input)); err != nil {
			return Error(fmt.Sprintf("invalid input for tool %q: %v", t.name, err))
		}
	}

	if t.handler == nil {
		return Error(fmt.Sprintf("tool %q has no handler", t.name))
	}

	out, err := t.handler(ctx, input)
	if err != nil {
		return Error(err.Error())
	}
	return toToolResult(out)
}

// toValidatable round-trips input through JSON so the schema validator sees
// plain map/slice/number/string/bool values regardless of how the caller
// built the map[string]any.
func toValidatable(input map[string]any) any {
	raw, err := json.Marshal(input)
	if err != nil {
		return input
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return input
	}
	return v
}

// toToolResult converts a handler's return value into a ToolResult: a
// ToolResult is passed through unchanged, a string becomes Success(s), and
// anything else is JSON-encoded.
func toToolResult(v any) ToolResult {
	switch x := v.(type) {
	case ToolResult:
		return x
	case string:
		return Success(x)
	case nil:
		return Success("")
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return Error(fmt.Sprintf("failed to encode tool result: %v", err))
		}
		return Success(string(raw))
	}
}
