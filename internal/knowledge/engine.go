package knowledge

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/dispatch-core/pkg/logger"
	"github.com/capitalize-ai/dispatch-core/pkg/metrics"
)

// MissMessage is returned when no stage produced an answer.
const MissMessage = "No direct info found in the knowledge base. Please ask about our services, timings or facilities!"

// NoCorpusMessage is returned when the engine has nothing to search.
const NoCorpusMessage = "No knowledge base loaded. Sorry."

// Stage identifies which step of the lookup produced an answer.
type Stage string

const (
	StageSummary  Stage = "summary"
	StageRawLines Stage = "raw_lines"
	StageCorpus   Stage = "corpus"
	StageMiss     Stage = "miss"
)

// Generator produces text for prompt using grounding as its only source.
type Generator interface {
	Generate(ctx context.Context, prompt, grounding string) (string, error)
}

// Answer is the outcome of a lookup.
type Answer struct {
	Text  string `json:"text"`
	Stage Stage  `json:"stage"`
	Lines int    `json:"matched_lines"`
}

// Engine resolves queries against a corpus in stages: substring match
// summarized by the generator, whole-corpus generation, then a fixed miss.
type Engine struct {
	corpus    *Corpus
	generator Generator
	logger    *logger.Logger
	tracer    trace.Tracer
}

// NewEngine creates an Engine. generator may be nil, in which case matched
// lines are returned verbatim and the corpus stage is skipped.
func NewEngine(corpus *Corpus, generator Generator, log *logger.Logger) *Engine {
	return &Engine{
		corpus:    corpus,
		generator: generator,
		logger:    log,
		tracer:    otel.Tracer("dispatch-core/knowledge"),
	}
}

// Lookup answers query. It never fails: generator errors degrade to the next
// stage and exhaustion yields MissMessage.
func (e *Engine) Lookup(ctx context.Context, query string) Answer {
	ctx, span := e.tracer.Start(ctx, "knowledge.Lookup")
	defer span.End()

	answer := e.lookup(ctx, query)

	span.SetAttributes(
		attribute.String("knowledge.stage", string(answer.Stage)),
		attribute.Int("knowledge.matched_lines", answer.Lines),
	)
	metrics.KnowledgeLookups.WithLabelValues(string(answer.Stage)).Inc()
	return answer
}

func (e *Engine) lookup(ctx context.Context, query string) Answer {
	if e.corpus.Empty() {
		return Answer{Text: NoCorpusMessage, Stage: StageMiss}
	}
	if strings.TrimSpace(query) == "" {
		return Answer{Text: MissMessage, Stage: StageMiss}
	}

	if lines := e.corpus.Search(query); len(lines) > 0 {
		return e.summarize(ctx, query, lines)
	}

	if text := e.searchCorpus(ctx, query); text != "" {
		return Answer{Text: text, Stage: StageCorpus}
	}
	return Answer{Text: MissMessage, Stage: StageMiss}
}

func (e *Engine) summarize(ctx context.Context, query string, lines []string) Answer {
	raw := strings.Join(lines, "\n")
	fallback := Answer{Text: raw, Stage: StageRawLines, Lines: len(lines)}
	if e.generator == nil {
		return fallback
	}

	prompt := fmt.Sprintf("The user asked: %q\n"+
		"We found the lines below in the local knowledge base. Summarize them or craft a short, natural response. "+
		"If the lines mention specific details, share them in a friendly tone. Use only the lines given.", query)

	text, err := e.generator.Generate(ctx, prompt, raw)
	if err != nil {
		e.logger.Warn("knowledge summary failed, returning matched lines",
			zap.Int("lines", len(lines)),
			zap.Error(err),
		)
		return fallback
	}
	if text = strings.TrimSpace(text); text == "" {
		return fallback
	}
	return Answer{Text: text, Stage: StageSummary, Lines: len(lines)}
}

func (e *Engine) searchCorpus(ctx context.Context, query string) string {
	if e.generator == nil {
		return ""
	}

	prompt := fmt.Sprintf("The user asked: %q\n"+
		"The context is the entire knowledge base. Find any relevant info and summarize it in a friendly tone. "+
		"If there is truly nothing relevant, respond with an empty line or say \"No relevant info.\"", query)

	text, err := e.generator.Generate(ctx, prompt, e.corpus.Text())
	if err != nil {
		e.logger.Warn("knowledge corpus search failed", zap.Error(err))
		return ""
	}
	text = strings.TrimSpace(text)
	if IsNoInfo(text) {
		return ""
	}
	return text
}

var noInfoPhrases = []string{
	"no relevant info",
	"no relevant information",
	"nothing relevant",
}

// IsNoInfo reports whether a generated answer amounts to "nothing found":
// it is shorter than four characters or says so in words.
func IsNoInfo(text string) bool {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < 4 {
		return true
	}
	lower := strings.ToLower(text)
	for _, p := range noInfoPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
