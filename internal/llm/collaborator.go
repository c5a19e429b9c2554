package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/dispatch-core/pkg/logger"
)

var (
	// ErrUnavailable is returned by a Collaborator without a client.
	ErrUnavailable = errors.New("language model unavailable")
	// ErrUnknownLabel is returned when the model answers outside the taxonomy.
	ErrUnknownLabel = errors.New("label not in taxonomy")
)

const (
	classifySystem = "You are a precise classifier. Reply with exactly one label from the list and nothing else."
	generateSystem = "You are a helpful, human-like assistant. Answer only from the context provided and never invent facts."
)

// Collaborator exposes a Client through two narrow contracts: classify text
// into a closed taxonomy, and generate text grounded in supplied context.
type Collaborator struct {
	client Client
	model  string
	logger *logger.Logger
}

// NewCollaborator creates a Collaborator. client may be nil.
func NewCollaborator(client Client, model string, log *logger.Logger) *Collaborator {
	return &Collaborator{client: client, model: model, logger: log}
}

// Available reports whether a client is configured.
func (c *Collaborator) Available() bool {
	return c != nil && c.client != nil
}

// Classify returns the taxonomy entry the model picks for text, compared
// case-insensitively.
func (c *Collaborator) Classify(ctx context.Context, text string, taxonomy []string) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}
	if len(taxonomy) == 0 {
		return "", errors.New("taxonomy must not be empty")
	}

	prompt := fmt.Sprintf("Labels: %s\n\nText: %q\n\nWhich single label fits the text best?",
		strings.Join(taxonomy, ", "), text)

	resp, err := c.client.Complete(ctx, &CompletionRequest{
		Model:     c.model,
		System:    classifySystem,
		Messages:  []ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens: 32,
	})
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}

	answer := cleanLabel(resp.Content)
	for _, label := range taxonomy {
		if strings.EqualFold(label, answer) {
			return label, nil
		}
	}
	c.logger.Debug("classifier answered outside taxonomy", zap.String("answer", answer))
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, answer)
}

// Generate completes prompt with grounding as its reference material and
// returns the trimmed text.
func (c *Collaborator) Generate(ctx context.Context, prompt, grounding string) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}

	content := prompt
	if grounding != "" {
		content = prompt + "\n\nContext:\n" + grounding
	}

	resp, err := c.client.Complete(ctx, &CompletionRequest{
		Model:       c.model,
		System:      generateSystem,
		Messages:    []ChatMessage{{Role: "user", Content: content}},
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(strings.Trim(s, "\"'`.*"))
}
