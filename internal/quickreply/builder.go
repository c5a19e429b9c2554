package quickreply

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/capitalize-ai/dispatch-core/internal/category"
	"github.com/capitalize-ai/dispatch-core/internal/gateway"
	"github.com/capitalize-ai/dispatch-core/internal/model"
)

const (
	// MaxOptions is the most options one set carries.
	MaxOptions = 3
	// MaxTitleLength is the longest option title, in characters.
	MaxTitleLength = 20

	smartWindow     = 10
	smartCategories = 2
	menuCategory    = "menu"
	generalCategory = "general"
)

// Builder turns decisions into suggestion sets.
type Builder struct {
	catalog  *Catalog
	detector *category.Detector
}

// NewBuilder creates a Builder. Nil arguments use the defaults.
func NewBuilder(catalog *Catalog, detector *category.Detector) *Builder {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if detector == nil {
		detector = category.NewDetector(nil)
	}
	return &Builder{catalog: catalog, detector: detector}
}

// Build returns the set for d, or nil when d is StrategyNone or the bot
// reply does not warrant follow-ups.
func (b *Builder) Build(d Decision, in Input, lang Language) *model.QuickReplySet {
	switch d.Strategy {
	case model.StrategyContextual:
		return b.contextual(d.Category, lang)
	case model.StrategyFollowUp:
		if !FollowUpRelevant(in.BotReply) {
			return nil
		}
		return b.followUp(DetectTopic(in.BotReply), lang)
	case model.StrategySmart:
		return b.smart(in.History, lang)
	case model.StrategyGeneral:
		return b.General(lang)
	case model.StrategyWelcome:
		return b.Welcome(lang)
	}
	return nil
}

func (b *Builder) contextual(cat category.Category, lang Language) *model.QuickReplySet {
	questions := b.catalog.Questions(cat, lang)
	if len(questions) == 0 {
		return b.General(lang)
	}
	name := b.catalog.CategoryName(cat, lang)
	prompt := fmt.Sprintf("Common questions about %s:", name)
	if lang == Marathi {
		prompt = fmt.Sprintf("%s बद्दल सामान्य प्रश्न:", name)
	}
	return newSet(model.StrategyContextual, string(cat), prompt, questions)
}

func (b *Builder) followUp(topic Topic, lang Language) *model.QuickReplySet {
	questions := b.catalog.FollowUps(topic, lang)
	if len(questions) == 0 {
		return nil
	}
	prompt := "For more information:"
	if lang == Marathi {
		prompt = "अधिक माहितीसाठी:"
	}
	return newSet(model.StrategyFollowUp, string(topic), prompt, questions)
}

// MinFollowUpReply is the shortest bot reply, in characters, that earns
// follow-up suggestions.
const MinFollowUpReply = 50

// FollowUpRelevant reports whether a bot reply warrants follow-ups: it is
// long enough, does not ask the user for details and is not a thank-you.
func FollowUpRelevant(botReply string) bool {
	if utf8.RuneCountInString(botReply) < MinFollowUpReply {
		return false
	}
	if containsAny(botReply, requestPhrases) {
		return false
	}
	return !containsAny(botReply, []string{"thank you", "धन्यवाद"})
}

// General returns the fixed starter menu.
func (b *Builder) General(lang Language) *model.QuickReplySet {
	prompt := "Which service would you like to know about?"
	if lang == Marathi {
		prompt = "आपण खालीलपैकी कोणत्या सेवेबद्दल जाणून घेऊ इच्छिता?"
	}
	return newSet(model.StrategyGeneral, menuCategory, prompt, b.catalog.General(lang))
}

// Welcome returns the welcome menu.
func (b *Builder) Welcome(lang Language) *model.QuickReplySet {
	prompt := "🙏 Welcome! What would you like to know?"
	if lang == Marathi {
		prompt = "🙏 आपले स्वागत आहे! आपण काय जाणून घेऊ इच्छिता?"
	}
	return newSet(model.StrategyWelcome, menuCategory, prompt, b.catalog.Welcome(lang))
}

// smart offers the first question of each of the user's most frequent
// recent categories, topped up with the first general option.
func (b *Builder) smart(history []model.ConversationTurn, lang Language) *model.QuickReplySet {
	top := b.TopCategories(history, smartCategories)
	if len(top) == 0 {
		return b.General(lang)
	}

	var options []model.QuickReplyOption
	for _, cat := range top {
		if qs := b.catalog.Questions(cat, lang); len(qs) > 0 {
			options = append(options, option(model.StrategySmart, string(cat), 0, qs[0]))
		}
	}
	if general := b.catalog.General(lang); len(options) < MaxOptions && len(general) > 0 {
		options = append(options, option(model.StrategySmart, generalCategory, 0, general[0]))
	}
	if len(options) > MaxOptions {
		options = options[:MaxOptions]
	}

	prompt := "Suggestions based on your interests:"
	if lang == Marathi {
		prompt = "आपल्या आवडीच्या सेवांवर आधारित सूचना:"
	}
	return &model.QuickReplySet{Strategy: model.StrategySmart, PromptText: prompt, Options: options}
}

// TopCategories ranks the categories of the user turns among the last ten
// history entries by frequency, breaking ties by detector priority, and
// returns at most n. A turn's own category wins over detection.
func (b *Builder) TopCategories(history []model.ConversationTurn, n int) []category.Category {
	if len(history) > smartWindow {
		history = history[len(history)-smartWindow:]
	}

	priority := make(map[category.Category]int)
	for i, c := range b.detector.Categories() {
		priority[c] = i
	}

	counts := make(map[category.Category]int)
	var seen []category.Category
	for _, turn := range history {
		if turn.Role != model.RoleUser {
			continue
		}
		cat := category.Category(turn.Category)
		if cat == category.None {
			cat = b.detector.Detect(turn.Content)
		}
		if cat == category.None {
			continue
		}
		if counts[cat] == 0 {
			seen = append(seen, cat)
			if _, ok := priority[cat]; !ok {
				priority[cat] = len(priority)
			}
		}
		counts[cat]++
	}

	sort.SliceStable(seen, func(i, j int) bool {
		if counts[seen[i]] != counts[seen[j]] {
			return counts[seen[i]] > counts[seen[j]]
		}
		return priority[seen[i]] < priority[seen[j]]
	})
	if len(seen) > n {
		seen = seen[:n]
	}
	return seen
}

func newSet(strategy model.Strategy, cat, prompt string, labels []string) *model.QuickReplySet {
	if len(labels) > MaxOptions {
		labels = labels[:MaxOptions]
	}
	options := make([]model.QuickReplyOption, len(labels))
	for i, l := range labels {
		options[i] = option(strategy, cat, i, l)
	}
	return &model.QuickReplySet{Strategy: strategy, Category: cat, PromptText: prompt, Options: options}
}

func option(strategy model.Strategy, cat string, index int, label string) model.QuickReplyOption {
	return model.QuickReplyOption{ID: OptionID(strategy, cat, index), Title: Truncate(label)}
}

// OptionID encodes an option as strategy:category:index.
func OptionID(strategy model.Strategy, cat string, index int) string {
	return string(strategy) + ":" + cat + ":" + strconv.Itoa(index)
}

// Truncate shortens labels over MaxTitleLength characters to 17 characters
// plus an ellipsis.
func Truncate(label string) string {
	r := []rune(label)
	if len(r) <= MaxTitleLength {
		return label
	}
	return string(r[:MaxTitleLength-3]) + "..."
}

// DetectTopic picks the follow-up family a bot reply calls for.
func DetectTopic(botReply string) Topic {
	switch {
	case containsAny(botReply, []string{"document", "कागदपत्र", "application", "अर्ज"}):
		return TopicDocuments
	case containsAny(botReply, []string{"scheme", "योजना", "benefit", "लाभ"}):
		return TopicScheme
	case containsAny(botReply, []string{"contact", "संपर्क", "office", "कार्यालय"}):
		return TopicContact
	}
	return TopicScheme
}

// Interactive renders set as a button interactive.
func Interactive(set *model.QuickReplySet) *gateway.Interactive {
	replies := make([]gateway.ButtonReply, len(set.Options))
	for i, o := range set.Options {
		replies[i] = gateway.ButtonReply{ID: o.ID, Title: o.Title}
	}
	return gateway.NewButtons(set.PromptText, replies...)
}

// ParseID splits an option id. ok is false for ids not built by OptionID.
func ParseID(id string) (strategy model.Strategy, cat string, index int, ok bool) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 || parts[0] == "" {
		return "", "", 0, false
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil || index < 0 {
		return "", "", 0, false
	}
	return model.Strategy(parts[0]), parts[1], index, true
}

// Resolve maps an option id back to its full, untruncated label.
func (b *Builder) Resolve(id string, lang Language) (string, bool) {
	strategy, cat, index, ok := ParseID(id)
	if !ok {
		return "", false
	}

	var labels []string
	switch strategy {
	case model.StrategyContextual:
		labels = b.catalog.Questions(category.Category(cat), lang)
	case model.StrategyFollowUp:
		labels = b.catalog.FollowUps(Topic(cat), lang)
	case model.StrategySmart:
		if cat == generalCategory {
			labels = b.catalog.General(lang)
		} else {
			labels = b.catalog.Questions(category.Category(cat), lang)
		}
	case model.StrategyGeneral:
		labels = b.catalog.General(lang)
	case model.StrategyWelcome:
		labels = b.catalog.Welcome(lang)
	}
	if index >= len(labels) {
		return "", false
	}
	return labels[index], true
}
