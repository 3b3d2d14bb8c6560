package multiagent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nexusrun/agentcore/internal/agent"
)

// defaultCompletionIndicators are case-insensitive substrings that, if
// present in an agent's result text, end a collaboration round early
// (§4.9). Configurable via CollaborationManagerConfig.CompletionIndicators.
var defaultCompletionIndicators = []string{
	"task complete",
	"finished",
	"done",
	"no further action needed",
	"final result",
}

// Turn is one executed round of a turn-taking collaboration.
type Turn struct {
	Round     int       `json:"round"`
	Agent     string    `json:"agent"`
	Task      string    `json:"task"`
	Result    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// CollaborationResult is what CollaborationManager.Collaborate returns.
type CollaborationResult struct {
	Turns     []Turn `json:"turns"`
	Synthesis string `json:"synthesis"`
}

// CollaborationManagerConfig configures CollaborationManager.
type CollaborationManagerConfig struct {
	MaxRounds            int
	EnableMessagePassing bool
	Protocol             Protocol
	// CompletionIndicators overrides the case-insensitive substrings that
	// end a round early when found in an agent's result text. Nil
	// defaults to defaultCompletionIndicators.
	CompletionIndicators []string
}

// CollaborationManager drives a bounded-round, turn-taking conversation
// among named agents, choosing the next speaker by asking the model and
// stopping on a completion indicator or an unparseable routing decision
// (§4.9). It also owns the shared memory and message queue for the agents
// it coordinates (§3 ownership rules).
type CollaborationManager struct {
	provider agent.Provider
	cfg      CollaborationManagerConfig
	memory   *SharedMemory
	logger   *slog.Logger

	order  []string
	agents map[string]Agent
}

// NewCollaborationManager builds a manager over provider for model calls
// (initiator selection, routing, synthesis).
func NewCollaborationManager(provider agent.Provider, cfg CollaborationManagerConfig) *CollaborationManager {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 10
	}
	if cfg.Protocol.Name == "" {
		cfg.Protocol = NewProtocol("broadcast")
	}
	if cfg.CompletionIndicators == nil {
		cfg.CompletionIndicators = defaultCompletionIndicators
	}
	return &CollaborationManager{
		provider: provider,
		cfg:      cfg,
		memory:   NewSharedMemory(false),
		logger:   slog.Default(),
		agents:   make(map[string]Agent),
	}
}

// WithLogger overrides the default logger.
func (m *CollaborationManager) WithLogger(l *slog.Logger) *CollaborationManager {
	if l != nil {
		m.logger = l
	}
	return m
}

// SharedMemory exposes the memory owned by this manager.
func (m *CollaborationManager) SharedMemory() *SharedMemory { return m.memory }

// Register adds an agent, preserving registration order for fallbacks.
func (m *CollaborationManager) Register(a Agent) {
	if _, exists := m.agents[a.ID()]; !exists {
		m.order = append(m.order, a.ID())
	}
	m.agents[a.ID()] = a
}

// Collaborate drives the bounded-round conversation described in §4.9.
// Fails before any model call if no agents are registered (§8 boundary
// behavior).
func (m *CollaborationManager) Collaborate(ctx context.Context, task string) (CollaborationResult, error) {
	if len(m.order) == 0 {
		return CollaborationResult{}, fmt.Errorf("collaboration requires at least one registered agent")
	}

	currentID := m.chooseInitiator(ctx)
	currentTask := task

	var turns []Turn
	for round := 1; round <= m.cfg.MaxRounds; round++ {
		a, ok := m.agents[currentID]
		if !ok {
			break
		}

		res := a.Run(ctx, currentTask)
		text := res.Answer
		if !res.Success {
			text = res.Error
		}
		turns = append(turns, Turn{Round: round, Agent: currentID, Task: currentTask, Result: text, Timestamp: time.Now()})

		m.drainOutbox(a)

		if containsCompletionIndicator(text, m.cfg.CompletionIndicators) {
			break
		}

		nextID, nextTask, stop := m.chooseNext(ctx, currentID, turns)
		if stop {
			break
		}
		currentID = nextID
		currentTask = nextTask
	}

	synthesis, err := m.synthesize(ctx, task, turns)
	if err != nil {
		// Fall back to the last agent's answer, per §4.9.
		if len(turns) > 0 {
			synthesis = turns[len(turns)-1].Result
		}
	}

	return CollaborationResult{Turns: turns, Synthesis: synthesis}, nil
}

// chooseInitiator asks the model to pick the first speaker, enumerating
// agent ids and capabilities; a parse failure picks the first registered
// agent.
func (m *CollaborationManager) chooseInitiator(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("Choose which agent should start working on the task. Respond with only the agent id.\n")
	for _, id := range m.order {
		b.WriteString(fmt.Sprintf("- %s: %s\n", id, strings.Join(m.agents[id].Capabilities(), ", ")))
	}

	text, _, err := promptModel(ctx, m.provider, b.String())
	if err != nil {
		return m.order[0]
	}
	candidate := strings.TrimSpace(text)
	if _, ok := m.agents[candidate]; ok {
		return candidate
	}
	return m.order[0]
}

// chooseNext asks the model which agent should continue and with what
// task, parsing "AGENT_ID: task" or "COMPLETE". An unparseable response or
// an unknown id stops the collaboration.
func (m *CollaborationManager) chooseNext(ctx context.Context, currentID string, turns []Turn) (nextID, nextTask string, stop bool) {
	prompt := fmt.Sprintf(
		"The agent %q just produced this result:\n%s\n\nShould another agent continue? "+
			"Reply either \"COMPLETE\" or \"AGENT_ID: task for that agent\".",
		currentID, turns[len(turns)-1].Result,
	)
	text, _, err := promptModel(ctx, m.provider, prompt)
	if err != nil {
		return "", "", true
	}
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "complete") {
		return "", "", true
	}
	parts := strings.SplitN(text, ":", 2)
	if len(parts) != 2 {
		return "", "", true
	}
	id := strings.TrimSpace(parts[0])
	if _, ok := m.agents[id]; !ok {
		return "", "", true
	}
	return id, strings.TrimSpace(parts[1]), false
}

func (m *CollaborationManager) synthesize(ctx context.Context, task string, turns []Turn) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Task: %s\n\nTranscript:\n", task))
	for _, t := range turns {
		b.WriteString(fmt.Sprintf("Round %d (%s): %s\n", t.Round, t.Agent, t.Result))
	}
	b.WriteString("\nSynthesize a single final answer from the transcript above.")
	text, _, err := promptModel(ctx, m.provider, b.String())
	return text, err
}

// drainOutbox forwards any messages a participating MessagingAgent has
// queued since its last turn, if message passing is enabled.
func (m *CollaborationManager) drainOutbox(a Agent) {
	if !m.cfg.EnableMessagePassing {
		return
	}
	ma, ok := a.(MessagingAgent)
	if !ok {
		return
	}
	for _, msg := range ma.Outbox() {
		m.route(msg)
	}
}

// route validates msg against the configured protocol and delivers it
// synchronously: broadcast fans out to every other agent, unicast
// delivers to the named recipient, and a missing recipient is logged and
// dropped, per §4.9.
func (m *CollaborationManager) route(msg Message) {
	if !m.cfg.Protocol.Accepts(msg) {
		m.logger.Warn("dropped message failing protocol validation", "protocol", m.cfg.Protocol.Name, "type", msg.Type)
		return
	}
	if msg.IsBroadcast() {
		for _, id := range m.order {
			if id == msg.From {
				continue
			}
			m.deliver(id, msg)
		}
		return
	}
	m.deliver(msg.To, msg)
}

func (m *CollaborationManager) deliver(to string, msg Message) {
	a, ok := m.agents[to]
	if !ok {
		m.logger.Warn("dropped message to unknown recipient", "to", to)
		return
	}
	if ma, ok := a.(MessagingAgent); ok {
		ma.Receive(msg)
	}
}

func containsCompletionIndicator(text string, indicators []string) bool {
	lower := strings.ToLower(text)
	for _, ind := range indicators {
		if strings.Contains(lower, strings.ToLower(ind)) {
			return true
		}
	}
	return false
}
