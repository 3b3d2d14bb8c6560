package multiagent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/nexusrun/agentcore/internal/agent"
	"github.com/nexusrun/agentcore/pkg/models"
)

// AsyncCollaborationManagerConfig configures AsyncCollaborationManager.
type AsyncCollaborationManagerConfig struct {
	// MaxConcurrent bounds the batch size for ExecuteBatched. Defaults to
	// the number of tasks (i.e. one batch) if unset.
	MaxConcurrent int
}

// AsyncCollaborationManager runs several agents concurrently, each owning
// its own AgentContext; workers are not shared state and communicate only
// through the result map, SharedMemory, or the message queue (§5).
type AsyncCollaborationManager struct {
	provider agent.Provider
	cfg      AsyncCollaborationManagerConfig

	order  []string
	agents map[string]Agent
}

// NewAsyncCollaborationManager builds a manager over provider, used for
// task decomposition and synthesis in CollaborateParallel.
func NewAsyncCollaborationManager(provider agent.Provider, cfg AsyncCollaborationManagerConfig) *AsyncCollaborationManager {
	return &AsyncCollaborationManager{provider: provider, cfg: cfg, agents: make(map[string]Agent)}
}

// Register adds an agent, preserving registration order.
func (m *AsyncCollaborationManager) Register(a Agent) {
	if _, exists := m.agents[a.ID()]; !exists {
		m.order = append(m.order, a.ID())
	}
	m.agents[a.ID()] = a
}

// ExecuteParallel launches every (agent, task) pair on an independent
// worker and returns the full result map once all have finished.
// Per-agent failures are captured in the map, not raised, except that an
// unknown agent id in tasks is simply skipped.
func (m *AsyncCollaborationManager) ExecuteParallel(ctx context.Context, tasks map[string]string) map[string]models.AgentResult {
	results := make(map[string]models.AgentResult, len(tasks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for id, task := range tasks {
		a, ok := m.agents[id]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(id string, a Agent, task string) {
			defer wg.Done()
			res := a.Run(ctx, task)
			mu.Lock()
			results[id] = res
			mu.Unlock()
		}(id, a, task)
	}

	wg.Wait()
	return results
}

// ExecuteBatched partitions tasks into batches of at most MaxConcurrent
// agent ids (ordered by registration for determinism), runs each batch as
// ExecuteParallel, and merges results in batch order.
func (m *AsyncCollaborationManager) ExecuteBatched(ctx context.Context, tasks map[string]string) map[string]models.AgentResult {
	maxConcurrent := m.cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = len(tasks)
		if maxConcurrent == 0 {
			maxConcurrent = 1
		}
	}

	var ids []string
	for _, id := range m.order {
		if _, ok := tasks[id]; ok {
			ids = append(ids, id)
		}
	}

	merged := make(map[string]models.AgentResult, len(ids))
	for start := 0; start < len(ids); start += maxConcurrent {
		end := start + maxConcurrent
		if end > len(ids) {
			end = len(ids)
		}
		batch := make(map[string]string, end-start)
		for _, id := range ids[start:end] {
			batch[id] = tasks[id]
		}
		for id, res := range m.ExecuteParallel(ctx, batch) {
			merged[id] = res
		}
	}
	return merged
}

// raceWinner carries a finished agent's id and result across the race
// channel.
type raceWinner struct {
	id  string
	res models.AgentResult
}

// Race returns the first agent to finish successfully. Other in-flight
// workers are cancelled cooperatively: they observe ctx.Done() at their
// next iteration boundary and exit without mutating the result, though a
// worker that cannot be interrupted runs to completion and its result is
// simply discarded. Fails if no registered agent has a task in tasks
// (§8 boundary behavior: "race with zero viable agents ⇒ failure").
func (m *AsyncCollaborationManager) Race(ctx context.Context, tasks map[string]string) (string, models.AgentResult, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan raceWinner, len(tasks))
	viable := 0
	for id, task := range tasks {
		a, ok := m.agents[id]
		if !ok {
			continue
		}
		viable++
		go func(id string, a Agent, task string) {
			res := a.Run(raceCtx, task)
			select {
			case ch <- raceWinner{id: id, res: res}:
			case <-raceCtx.Done():
			}
		}(id, a, task)
	}

	if viable == 0 {
		return "", models.AgentResult{}, fmt.Errorf("race requires at least one viable agent")
	}

	for i := 0; i < viable; i++ {
		w := <-ch
		if w.res.Success {
			cancel()
			return w.id, w.res, nil
		}
	}
	return "", models.AgentResult{}, fmt.Errorf("race: no agent completed successfully")
}

// CollaborateParallel asks the model to decompose task into n subtasks,
// assigns them to the first n registered agents, runs ExecuteParallel, and
// asks the model to synthesize the combined results.
func (m *AsyncCollaborationManager) CollaborateParallel(ctx context.Context, task string, n int) (map[string]models.AgentResult, string, error) {
	if n > len(m.order) {
		n = len(m.order)
	}
	if n == 0 {
		return nil, "", fmt.Errorf("collaborate_parallel requires at least one registered agent")
	}

	subtasks, err := m.decompose(ctx, task, n)
	if err != nil {
		return nil, "", err
	}

	tasks := make(map[string]string, n)
	for i := 0; i < n; i++ {
		tasks[m.order[i]] = subtasks[i]
	}

	results := m.ExecuteParallel(ctx, tasks)
	synthesis, err := m.synthesize(ctx, task, results)
	if err != nil {
		return results, "", err
	}
	return results, synthesis, nil
}

// decompose prompts the model for n subtasks, one per line, falling back
// to the original task repeated n times if the response can't be split
// cleanly.
func (m *AsyncCollaborationManager) decompose(ctx context.Context, task string, n int) ([]string, error) {
	prompt := fmt.Sprintf("Split the following task into exactly %d independent subtasks, one per line:\n%s", n, task)
	text, _, err := promptModel(ctx, m.provider, prompt)
	if err != nil {
		return nil, err
	}
	lines := nonEmptyLines(text)
	if len(lines) < n {
		out := make([]string, n)
		for i := range out {
			out[i] = task
		}
		return out, nil
	}
	return lines[:n], nil
}

func (m *AsyncCollaborationManager) synthesize(ctx context.Context, task string, results map[string]models.AgentResult) (string, error) {
	var b strings.Builder
	b.WriteString("Task: " + task + "\n\nResults from " + strconv.Itoa(len(results)) + " parallel agents:\n")
	for id, res := range results {
		answer := res.Answer
		if !res.Success {
			answer = "(failed: " + res.Error + ")"
		}
		b.WriteString(fmt.Sprintf("- %s: %s\n", id, answer))
	}
	b.WriteString("\nSynthesize a single combined answer.")
	text, _, err := promptModel(ctx, m.provider, b.String())
	return text, err
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
