package multiagent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexusrun/agentcore/internal/agent"
	"github.com/nexusrun/agentcore/pkg/models"
)

// DebateAgent is a participant that produces one statement per round,
// seeing the full transcript of everything said so far.
type DebateAgent interface {
	Name() string
	Statement(ctx context.Context, topic, transcript string) (text string, usage models.TokenUsageTotal, err error)
}

// DebateRound is one round's statements, keyed by agent name.
type DebateRound struct {
	RoundNumber int               `json:"round_number"`
	Statements  map[string]string `json:"statements"`
}

// DebateResult is the outcome of a full debate.
type DebateResult struct {
	Topic          string        `json:"topic"`
	Rounds         []DebateRound `json:"rounds"`
	Synthesis      string        `json:"synthesis"`
	AgreementScore float64       `json:"agreement_score"`
	TotalTokens    int           `json:"total_tokens"`
}

// defaultAgreeWords/defaultDisagreeWords are the lexical-heuristic
// vocabularies used to score agreement when a DebateConfig doesn't
// override them. "however" deliberately appears in both: it hedges either
// toward a qualified agreement or an outright objection, and the scoring
// heuristic is lexical, not semantic, so it counts toward both tallies.
var (
	defaultAgreeWords    = []string{"agree", "concur", "support", "aligned", "consistent with", "however"}
	defaultDisagreeWords = []string{"disagree", "however", "contrary", "oppose", "conflict", "inconsistent"}
)

// DebateConfig configures a DebateSystem run.
type DebateConfig struct {
	Rounds             int
	EarlyStop          bool
	ConsensusThreshold float64
	AgreeWords         []string
	DisagreeWords      []string
}

// resolved fills zero-value fields with defaults.
func (c DebateConfig) resolved() DebateConfig {
	if c.Rounds <= 0 {
		c.Rounds = 3
	}
	if c.ConsensusThreshold <= 0 {
		c.ConsensusThreshold = 0.75
	}
	if c.AgreeWords == nil {
		c.AgreeWords = defaultAgreeWords
	}
	if c.DisagreeWords == nil {
		c.DisagreeWords = defaultDisagreeWords
	}
	return c
}

// DebateSystem conducts R rounds of structured debate among registered
// agents, then synthesizes a 4-part conclusion and scores agreement by a
// lexical heuristic (§4.11).
type DebateSystem struct {
	provider agent.Provider
	agents   []DebateAgent
}

// NewDebateSystem builds a system over provider, used for the moderator's
// synthesis prompt.
func NewDebateSystem(provider agent.Provider) *DebateSystem {
	return &DebateSystem{provider: provider}
}

// Register adds a debate agent; agents speak in registration order.
func (d *DebateSystem) Register(a DebateAgent) { d.agents = append(d.agents, a) }

// Conduct runs the debate described by cfg and returns the result. Early
// stopping triggers only after at least 2 completed rounds meet the
// consensus threshold.
func (d *DebateSystem) Conduct(ctx context.Context, topic string, cfg DebateConfig) (DebateResult, error) {
	cfg = cfg.resolved()
	if len(d.agents) == 0 {
		return DebateResult{}, fmt.Errorf("debate requires at least one registered agent")
	}

	var rounds []DebateRound
	var transcriptLines []string
	totalTokens := 0
	agreementScore := 0.0

	for roundNum := 1; roundNum <= cfg.Rounds; roundNum++ {
		statements := make(map[string]string, len(d.agents))
		transcript := strings.Join(transcriptLines, "\n")
		for _, a := range d.agents {
			text, usage, err := a.Statement(ctx, topic, transcript)
			if err != nil {
				text = fmt.Sprintf("(no statement: %v)", err)
			}
			statements[a.Name()] = text
			totalTokens += usage.Total
			transcriptLines = append(transcriptLines, fmt.Sprintf("%s: %s", a.Name(), text))
		}
		rounds = append(rounds, DebateRound{RoundNumber: roundNum, Statements: statements})

		agreementScore = scoreAgreement(rounds, cfg.AgreeWords, cfg.DisagreeWords)
		if cfg.EarlyStop && roundNum >= 2 && agreementScore >= cfg.ConsensusThreshold {
			break
		}
	}

	synthesis, usage, err := d.synthesize(ctx, topic, rounds)
	totalTokens += usage.Total
	if err != nil {
		synthesis = ""
	}

	return DebateResult{
		Topic:          topic,
		Rounds:         rounds,
		Synthesis:      synthesis,
		AgreementScore: agreementScore,
		TotalTokens:    totalTokens,
	}, nil
}

// buildTranscript renders rounds as "=== Round k ===\n<name>:\n<statement>\n...".
func buildTranscript(rounds []DebateRound) string {
	var b strings.Builder
	for _, r := range rounds {
		b.WriteString(fmt.Sprintf("=== Round %d ===\n", r.RoundNumber))
		for name, statement := range r.Statements {
			b.WriteString(fmt.Sprintf("%s:\n%s\n", name, statement))
		}
	}
	return b.String()
}

// synthesize prompts the model for a 4-part synthesis: agreements, valid
// concerns, a recommendation with rationale, and risks and mitigations.
func (d *DebateSystem) synthesize(ctx context.Context, topic string, rounds []DebateRound) (string, models.TokenUsageTotal, error) {
	prompt := fmt.Sprintf(
		"Topic: %s\n\nDebate transcript:\n%s\n\nProduce a synthesis with four parts: "+
			"(1) agreements, (2) valid concerns, (3) a recommendation with rationale, (4) risks and mitigations.",
		topic, buildTranscript(rounds),
	)
	text, usage, err := promptModel(ctx, d.provider, prompt)
	return text, usage, err
}

// scoreAgreement is the lexical heuristic from §4.11:
// agree_count / (agree_count + disagree_count) over every statement made
// so far, flattened; 0.5 (neutral) when the denominator is zero.
func scoreAgreement(rounds []DebateRound, agreeWords, disagreeWords []string) float64 {
	agree, disagree := 0, 0
	for _, r := range rounds {
		for _, statement := range r.Statements {
			lower := strings.ToLower(statement)
			for _, w := range agreeWords {
				if strings.Contains(lower, w) {
					agree++
				}
			}
			for _, w := range disagreeWords {
				if strings.Contains(lower, w) {
					disagree++
				}
			}
		}
	}
	if agree+disagree == 0 {
		return 0.5
	}
	return float64(agree) / float64(agree+disagree)
}
