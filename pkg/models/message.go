// Package models holds the wire-level data types shared between the agent
// loop, the model transport, and multi-agent message passing.
package models

import "encoding/json"

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of a conversation. Content is either a plain string
// or an ordered list of typed Blocks — never both.
type Message struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// Content is a polymorphic message body: either a raw string or an ordered
// list of typed blocks (text / tool_use / tool_result).
type Content interface {
	isContent()
}

// TextContent is a plain-string message body.
type TextContent string

func (TextContent) isContent() {}

// String returns the underlying text.
func (t TextContent) String() string { return string(t) }

// BlockContent is an ordered list of typed content blocks.
type BlockContent []Block

func (BlockContent) isContent() {}

// Block is one entry of a BlockContent list.
type Block interface {
	isBlock()
	BlockType() string
}

// TextBlock carries plain text.
type TextBlock struct {
	Text string `json:"text"`
}

func (TextBlock) isBlock()          {}
func (TextBlock) BlockType() string { return "text" }

// ToolUseBlock is the model's request to invoke a tool.
type ToolUseBlock struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

func (ToolUseBlock) isBlock()          {}
func (ToolUseBlock) BlockType() string { return "tool_use" }

// ToolResultBlock carries the outcome of a tool_use back to the model.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error"`
}

func (ToolResultBlock) isBlock()          {}
func (ToolResultBlock) BlockType() string { return "tool_result" }

// Text concatenates every TextBlock in a message's content, or returns the
// content verbatim if it is a plain string. Non-text blocks are ignored.
func (m Message) Text() string {
	switch c := m.Content.(type) {
	case TextContent:
		return string(c)
	case BlockContent:
		out := ""
		for _, b := range c {
			if tb, ok := b.(TextBlock); ok {
				out += tb.Text
			}
		}
		return out
	default:
		return ""
	}
}

// ToolUses returns every tool_use block in the message, in order.
func (m Message) ToolUses() []ToolUseBlock {
	blocks, ok := m.Content.(BlockContent)
	if !ok {
		return nil
	}
	var out []ToolUseBlock
	for _, b := range blocks {
		if tu, ok := b.(ToolUseBlock); ok {
			out = append(out, tu)
		}
	}
	return out
}

// ToolResults returns every tool_result block in the message, in order.
func (m Message) ToolResults() []ToolResultBlock {
	blocks, ok := m.Content.(BlockContent)
	if !ok {
		return nil
	}
	var out []ToolResultBlock
	for _, b := range blocks {
		if tr, ok := b.(ToolResultBlock); ok {
			out = append(out, tr)
		}
	}
	return out
}

// StopReason is why the model stopped generating.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopToolUse      StopReason = "tool_use"
	StopMaxTokens    StopReason = "max_tokens"
	StopStopSequence StopReason = "stop_sequence"
)

// TokenUsage is an input/output token count pair.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// CompletionResponse is what a Provider returns for one model call.
type CompletionResponse struct {
	Content    BlockContent `json:"content"`
	StopReason StopReason   `json:"stop_reason"`
	Usage      TokenUsage   `json:"usage"`
}

// MarshalJSON implements a stable wire encoding for Content so messages can
// be checkpointed/persisted and reloaded.
func (m Message) MarshalJSON() ([]byte, error) {
	type wire struct {
		Role    Role            `json:"role"`
		Kind    string          `json:"content_kind"`
		Text    string          `json:"text,omitempty"`
		Blocks  []blockWire     `json:"blocks,omitempty"`
		RawJSON json.RawMessage `json:"-"`
	}
	w := wire{Role: m.Role}
	switch c := m.Content.(type) {
	case TextContent:
		w.Kind = "text"
		w.Text = string(c)
	case BlockContent:
		w.Kind = "blocks"
		w.Blocks = make([]blockWire, 0, len(c))
		for _, b := range c {
			w.Blocks = append(w.Blocks, toBlockWire(b))
		}
	case nil:
		w.Kind = "text"
	default:
		w.Kind = "text"
	}
	return json.Marshal(w)
}

type blockWire struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

func toBlockWire(b Block) blockWire {
	switch v := b.(type) {
	case TextBlock:
		return blockWire{Type: "text", Text: v.Text}
	case ToolUseBlock:
		return blockWire{Type: "tool_use", ID: v.ID, Name: v.Name, Input: v.Input}
	case ToolResultBlock:
		return blockWire{Type: "tool_result", ToolUseID: v.ToolUseID, Content: v.Content, IsError: v.IsError}
	default:
		return blockWire{Type: "text"}
	}
}

func fromBlockWire(w blockWire) Block {
	switch w.Type {
	case "tool_use":
		return ToolUseBlock{ID: w.ID, Name: w.Name, Input: w.Input}
	case "tool_result":
		return ToolResultBlock{ToolUseID: w.ToolUseID, Content: w.Content, IsError: w.IsError}
	default:
		return TextBlock{Text: w.Text}
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w struct {
		Role   Role        `json:"role"`
		Kind   string      `json:"content_kind"`
		Text   string      `json:"text,omitempty"`
		Blocks []blockWire `json:"blocks,omitempty"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Role = w.Role
	if w.Kind == "blocks" {
		blocks := make(BlockContent, 0, len(w.Blocks))
		for _, bw := range w.Blocks {
			blocks = append(blocks, fromBlockWire(bw))
		}
		m.Content = blocks
	} else {
		m.Content = TextContent(w.Text)
	}
	return nil
}
