package closebook

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// Narrative is the AI-generated close commentary plus its cost accounting.
// Narrative content is excluded from the run's determinism contract.
type Narrative struct {
	Kind        string
	Artifact    string
	GeneratedAt string
	Tokens      int
	CostUSD     decimal.Decimal
}

// Narrator produces a close narrative from the run summary. Implementations
// may suspend on network I/O; the orchestrator bounds the call with a
// timeout and degrades to a placeholder on failure.
type Narrator interface {
	Narrate(ctx context.Context, summary string) (*Narrative, error)
}

// costPerToken is the blended narrative price used for the ai_metrics
// record.
var costPerToken = decimal.New(2, -7) // 0.0000002 USD

// GeminiNarrator generates the narrative with the Gemini API. Credentials
// come from the environment; a missing configuration surfaces as an error
// from Narrate and the run degrades to a placeholder.
type GeminiNarrator struct {
	Model string
}

// NewGeminiNarrator creates a narrator for the given model.
func NewGeminiNarrator(model string) *GeminiNarrator {
	return &GeminiNarrator{Model: model}
}

const narrativePrompt = `You are the controller's assistant on a monthly financial close.
Write a short narrative (3 to 5 paragraphs) of the close below for the CFO:
call out the largest exceptions, the proposed adjustments, and anything a
reviewer should look at first. Be factual; every number you mention must
appear in the summary.

`

// Narrate sends the run summary to the model and returns the narrative with
// token and cost metrics.
func (g *GeminiNarrator) Narrate(ctx context.Context, summary string) (*Narrative, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize Gemini client: %w", err)
	}

	chat, err := client.Chats.Create(ctx, g.Model, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create chat: %w", err)
	}
	resp, err := chat.Send(ctx, &genai.Part{Text: narrativePrompt + summary})
	if err != nil {
		return nil, fmt.Errorf("narrative call failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from model %s", g.Model)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return &Narrative{
		Kind:        "close_narrative",
		Artifact:    resp.Candidates[0].Content.Parts[0].Text,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Tokens:      tokens,
		CostUSD:     costPerToken.Mul(decimal.NewFromInt(int64(tokens))),
	}, nil
}

// NopNarrator returns the placeholder narrative without any network call.
// Used when the narrative step is disabled and in tests.
type NopNarrator struct{}

func (NopNarrator) Narrate(ctx context.Context, summary string) (*Narrative, error) {
	return PlaceholderNarrative(), nil
}

// PlaceholderNarrative is the stored artifact when narrative generation is
// disabled or fails. Deterministic processing never depends on it.
func PlaceholderNarrative() *Narrative {
	return &Narrative{
		Kind:        "close_narrative",
		Artifact:    "narrative unavailable: generation disabled or failed",
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Tokens:      0,
		CostUSD:     decimal.Zero,
	}
}
