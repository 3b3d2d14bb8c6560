// Package multiagent implements coordination across several independently
// running agents: a message envelope and protocol validators, a linearized
// shared key/value store, and three collaboration strategies (turn-taking,
// parallel, and round-based debate) built on top of them.
package multiagent

import (
	"time"

	"github.com/google/uuid"
)

// Broadcast is the sentinel recipient meaning "fan out to every other
// registered agent".
const Broadcast = "broadcast"

// Message is the multi-agent envelope (distinct from models.Message, which
// is a single agent's conversation turn). Ids are unique within a process
// lifetime; Timestamp is monotonic per process.
type Message struct {
	ID        string         `json:"id"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Content   string         `json:"content"`
	Type      string         `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewMessage builds a Message with a generated id and the current
// timestamp, defaulting Type to "message" as required by §4.7. Panics are
// never raised here; callers validate From/To emptiness via Protocol or
// their own checks before sending.
func NewMessage(from, to, content, msgType string, metadata map[string]any) Message {
	if msgType == "" {
		msgType = "message"
	}
	return Message{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Content:   content,
		Type:      msgType,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}
}

// IsBroadcast reports whether m targets every other agent.
func (m Message) IsBroadcast() bool { return m.To == Broadcast }

// Valid reports the structural invariants from §4.7: a non-empty id
// (always true for messages built via NewMessage), non-empty From, and
// non-empty To.
func (m Message) Valid() bool {
	return m.ID != "" && m.From != "" && m.To != ""
}
