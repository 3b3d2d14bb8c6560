package multiagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusrun/agentcore/internal/agent"
	"github.com/nexusrun/agentcore/pkg/models"
)

// scriptedDebateAgent returns one statement per call from a fixed list,
// panicking (via require) if asked to speak more times than scripted.
type scriptedDebateAgent struct {
	t          *testing.T
	name       string
	statements []string
	calls      int
}

func (a *scriptedDebateAgent) Name() string { return a.name }

func (a *scriptedDebateAgent) Statement(ctx context.Context, topic, transcript string) (string, models.TokenUsageTotal, error) {
	require.Lessf(a.t, a.calls, len(a.statements), "agent %s spoke more rounds than scripted", a.name)
	s := a.statements[a.calls]
	a.calls++
	return s, models.TokenUsageTotal{Input: 10, Output: 10, Total: 20}, nil
}

func debateProvider() agent.Provider {
	return agent.ProviderFunc(func(ctx context.Context, req agent.CompletionRequest) (models.CompletionResponse, error) {
		return models.CompletionResponse{
			StopReason: models.StopEndTurn,
			Content:    models.BlockContent{models.TextBlock{Text: "synthesis"}},
		}, nil
	})
}

func TestDebateSystem_ZeroAgentsFails(t *testing.T) {
	d := NewDebateSystem(debateProvider())
	_, err := d.Conduct(context.Background(), "topic", DebateConfig{Rounds: 3})
	assert.Error(t, err)
}

// TestDebateSystem_EarlyStopAtConsensus is the concrete end-to-end
// scenario: 3 agents, rounds=5, threshold=0.75; after round 2 agreement
// reaches 0.75 and the debate stops with exactly 2 rounds recorded.
func TestDebateSystem_EarlyStopAtConsensus(t *testing.T) {
	d := NewDebateSystem(debateProvider())
	d.Register(&scriptedDebateAgent{t: t, name: "a", statements: []string{
		"I agree with the premise.",
		"I still agree and concur with the plan.",
		"should never be reached",
		"should never be reached",
		"should never be reached",
	}})
	d.Register(&scriptedDebateAgent{t: t, name: "b", statements: []string{
		"I concur, this seems aligned with our goals.",
		"Yes, I agree, this is consistent with what we discussed.",
		"should never be reached",
		"should never be reached",
		"should never be reached",
	}})
	d.Register(&scriptedDebateAgent{t: t, name: "c", statements: []string{
		"Agreed, this supports the direction.",
		"I support this and agree fully.",
		"should never be reached",
		"should never be reached",
		"should never be reached",
	}})

	res, err := d.Conduct(context.Background(), "topic", DebateConfig{
		Rounds:             5,
		EarlyStop:          true,
		ConsensusThreshold: 0.75,
	})

	require.NoError(t, err)
	assert.Len(t, res.Rounds, 2)
	assert.GreaterOrEqual(t, res.AgreementScore, 0.75)
	assert.Equal(t, "synthesis", res.Synthesis)
}

func TestDebateSystem_NoEarlyStopRunsAllRounds(t *testing.T) {
	d := NewDebateSystem(debateProvider())
	d.Register(&scriptedDebateAgent{t: t, name: "a", statements: []string{"statement 1", "statement 2", "statement 3"}})

	res, err := d.Conduct(context.Background(), "topic", DebateConfig{Rounds: 3, EarlyStop: false})
	require.NoError(t, err)
	assert.Len(t, res.Rounds, 3)
}

func TestDebateSystem_AgreementScoreNeutralWhenNoVocabularyMatches(t *testing.T) {
	d := NewDebateSystem(debateProvider())
	d.Register(&scriptedDebateAgent{t: t, name: "a", statements: []string{"the sky is blue today"}})

	res, err := d.Conduct(context.Background(), "topic", DebateConfig{Rounds: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.AgreementScore)
}

func TestDebateSystem_HoweverCountsTowardBothTallies(t *testing.T) {
	assert.Contains(t, defaultAgreeWords, "however")
	assert.Contains(t, defaultDisagreeWords, "however")

	score := scoreAgreement([]DebateRound{
		{RoundNumber: 1, Statements: map[string]string{"a": "however, that is all"}},
	}, defaultAgreeWords, defaultDisagreeWords)
	assert.Equal(t, 0.5, score)
}
