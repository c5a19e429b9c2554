package quickreply

import (
	"strings"
	"unicode"

	"github.com/capitalize-ai/dispatch-core/internal/category"
	"github.com/capitalize-ai/dispatch-core/internal/model"
)

// Reason names the rule that produced a decision.
type Reason string

const (
	ReasonQuickReplySelected  Reason = "quick_reply_selected"
	ReasonGreetingWithHistory Reason = "greeting_with_history"
	ReasonThanks              Reason = "thankyou_message"
	ReasonBotRequestingInfo   Reason = "bot_requesting_info"
	ReasonCategoryDetected    Reason = "category_detected"
	ReasonProcessMentioned    Reason = "process_mentioned"
	ReasonUserHasHistory      Reason = "user_has_history"
	ReasonNewUser             Reason = "new_user"
	ReasonNoClearStrategy     Reason = "no_clear_strategy"
)

// Input is everything a decision depends on. History holds the turns before
// the current message, oldest first.
type Input struct {
	Message       string                   `json:"message"`
	BotReply      string                   `json:"bot_reply"`
	History       []model.ConversationTurn `json:"history"`
	WasQuickReply bool                     `json:"was_quick_reply"`
}

// Decision is the chosen strategy and the rule that chose it.
type Decision struct {
	Strategy model.Strategy    `json:"strategy"`
	Reason   Reason            `json:"reason"`
	Category category.Category `json:"category,omitempty"`
}

// rule returns a decision and true when it applies.
type rule func(e *Engine, in Input) (Decision, bool)

// Engine evaluates the rules in priority order; the first that applies wins.
// Decide is a pure function of its input.
type Engine struct {
	detector *category.Detector
	rules    []rule
}

// NewEngine creates an Engine. A nil detector uses the default keywords.
func NewEngine(detector *category.Detector) *Engine {
	if detector == nil {
		detector = category.NewDetector(nil)
	}
	return &Engine{
		detector: detector,
		rules: []rule{
			quickReplySelected,
			greetingWithHistory,
			thanks,
			botRequestingInfo,
			categoryDetected,
			processMentioned,
			userHasHistory,
			newUser,
		},
	}
}

// Decide picks the strategy for one turn.
func (e *Engine) Decide(in Input) Decision {
	for _, r := range e.rules {
		if d, ok := r(e, in); ok {
			return d
		}
	}
	return none(ReasonNoClearStrategy)
}

func none(reason Reason) Decision {
	return Decision{Strategy: model.StrategyNone, Reason: reason}
}

func quickReplySelected(_ *Engine, in Input) (Decision, bool) {
	return none(ReasonQuickReplySelected), in.WasQuickReply
}

func greetingWithHistory(_ *Engine, in Input) (Decision, bool) {
	return none(ReasonGreetingWithHistory), len(in.History) > 4 && IsGreeting(in.Message)
}

func thanks(_ *Engine, in Input) (Decision, bool) {
	return none(ReasonThanks), IsThanks(in.Message)
}

func botRequestingInfo(_ *Engine, in Input) (Decision, bool) {
	return none(ReasonBotRequestingInfo), containsAny(in.BotReply, requestPhrases)
}

func categoryDetected(e *Engine, in Input) (Decision, bool) {
	cat := e.detector.Detect(in.Message)
	if cat == category.None {
		return Decision{}, false
	}
	return Decision{Strategy: model.StrategyContextual, Reason: ReasonCategoryDetected, Category: cat}, true
}

func processMentioned(_ *Engine, in Input) (Decision, bool) {
	return Decision{Strategy: model.StrategyFollowUp, Reason: ReasonProcessMentioned},
		containsAny(in.BotReply, processTerms)
}

func userHasHistory(_ *Engine, in Input) (Decision, bool) {
	return Decision{Strategy: model.StrategySmart, Reason: ReasonUserHasHistory}, len(in.History) >= 3
}

func newUser(_ *Engine, in Input) (Decision, bool) {
	return Decision{Strategy: model.StrategyGeneral, Reason: ReasonNewUser}, len(in.History) <= 2
}

var (
	greetingWords  = map[string]bool{"hi": true, "hello": true, "hey": true, "namaste": true}
	greetingPhrase = "नमस्कार"
	thanksTerms    = []string{"thank", "धन्यवाद"}
	requestPhrases = []string{"please provide", "कृपया द्या", "what is your", "तुमचे काय आहे"}
	processTerms   = []string{"document", "कागदपत्र", "application", "अर्ज", "process", "प्रक्रिया"}
)

// IsGreeting reports whether text greets: one of the greeting words as a
// whole word, or the Marathi greeting anywhere.
func IsGreeting(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, greetingPhrase) {
		return true
	}
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		if greetingWords[w] {
			return true
		}
	}
	return false
}

// IsThanks reports whether text is a thanks or acknowledgement.
func IsThanks(text string) bool {
	return containsAny(text, thanksTerms)
}

func containsAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
