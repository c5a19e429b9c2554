package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/dispatch-core/internal/category"
	"github.com/capitalize-ai/dispatch-core/internal/gateway"
	"github.com/capitalize-ai/dispatch-core/internal/knowledge"
	"github.com/capitalize-ai/dispatch-core/internal/model"
	"github.com/capitalize-ai/dispatch-core/internal/quickreply"
	"github.com/capitalize-ai/dispatch-core/internal/specialty"
	"github.com/capitalize-ai/dispatch-core/internal/task"
	"github.com/capitalize-ai/dispatch-core/pkg/logger"
	"github.com/capitalize-ai/dispatch-core/pkg/metrics"
)

// Intents an inbound text is routed to.
const (
	IntentKnowledge = "knowledge_lookup"
	IntentSymptom   = "symptom_assessment"
	IntentSmallTalk = "small_talk"
	IntentFallback  = "fallback"
	IntentUnhandled = "unsupported"
)

// Intents is the taxonomy handed to the classifier.
var Intents = []string{IntentKnowledge, IntentSymptom, IntentSmallTalk}

const (
	// DefaultQuickReplyDelay separates the primary reply from its suggestions.
	DefaultQuickReplyDelay = 1200 * time.Millisecond
	// DefaultFallbackDelay separates a fallback message from the welcome set.
	DefaultFallbackDelay = 1000 * time.Millisecond
	// DefaultHistoryLimit is how many past turns feed each decision.
	DefaultHistoryLimit = 8
)

const (
	smallTalkEnglish = "Hello! We are here to help. How can we assist you today?"
	smallTalkMarathi = "नमस्कार! आम्ही मदतीसाठी येथे आहोत. आज आम्ही आपली कशी मदत करू शकतो?"
)

// ErrEmptyMessage is returned for inbound events carrying no text.
var ErrEmptyMessage = errors.New("empty message")

// Dispatcher sends outbound messages.
type Dispatcher interface {
	Send(ctx context.Context, req *gateway.Request) (*model.DeliveryResult, error)
}

// Classifier picks one label of a taxonomy for a text.
type Classifier interface {
	Classify(ctx context.Context, text string, taxonomy []string) (string, error)
}

// KnowledgeEngine answers free-text questions.
type KnowledgeEngine interface {
	Lookup(ctx context.Context, query string) knowledge.Answer
}

// Assessor turns symptom text into a triage reply.
type Assessor interface {
	Assess(ctx context.Context, symptoms string) *specialty.Assessment
}

// Scheduler runs work after a delay.
type Scheduler interface {
	Schedule(ctx context.Context, name string, delay time.Duration, fn task.Func) error
}

// MessageService answers inbound messages: it routes the text, sends the
// reply and schedules quick-reply suggestions.
type MessageService struct {
	dispatcher Dispatcher
	classifier Classifier
	knowledge  KnowledgeEngine
	triage     Assessor
	decider    *quickreply.Engine
	builder    *quickreply.Builder
	detector   *category.Detector
	history    History
	scheduler  Scheduler
	logger     *logger.Logger

	quickReplyDelay time.Duration
	fallbackDelay   time.Duration
	historyLimit    int
}

// Deps groups the collaborators of a MessageService. Classifier may be nil,
// in which case every text is a knowledge lookup.
type Deps struct {
	Dispatcher Dispatcher
	Classifier Classifier
	Knowledge  KnowledgeEngine
	Triage     Assessor
	Decider    *quickreply.Engine
	Builder    *quickreply.Builder
	Detector   *category.Detector
	History    History
	Scheduler  Scheduler
}

// MessageOption configures a MessageService.
type MessageOption func(*MessageService)

// WithQuickReplyDelay sets the pause before suggestions are sent.
func WithQuickReplyDelay(d time.Duration) MessageOption {
	return func(s *MessageService) { s.quickReplyDelay = d }
}

// WithFallbackDelay sets the pause before the welcome set follows a fallback.
func WithFallbackDelay(d time.Duration) MessageOption {
	return func(s *MessageService) { s.fallbackDelay = d }
}

// WithHistoryLimit sets how many past turns feed each decision.
func WithHistoryLimit(n int) MessageOption {
	return func(s *MessageService) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// NewMessageService creates a new message service.
func NewMessageService(deps Deps, log *logger.Logger, opts ...MessageOption) *MessageService {
	s := &MessageService{
		dispatcher:      deps.Dispatcher,
		classifier:      deps.Classifier,
		knowledge:       deps.Knowledge,
		triage:          deps.Triage,
		decider:         deps.Decider,
		builder:         deps.Builder,
		detector:        deps.Detector,
		history:         deps.History,
		scheduler:       deps.Scheduler,
		logger:          log.Named("messages"),
		quickReplyDelay: DefaultQuickReplyDelay,
		fallbackDelay:   DefaultFallbackDelay,
		historyLimit:    DefaultHistoryLimit,
	}
	if s.detector == nil {
		s.detector = category.NewDetector(nil)
	}
	if s.decider == nil {
		s.decider = quickreply.NewEngine(s.detector)
	}
	if s.builder == nil {
		s.builder = quickreply.NewBuilder(nil, s.detector)
	}
	if s.history == nil {
		s.history = NewHistoryStore(0)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleInbound answers one inbound message. When the reply cannot be
// delivered a fallback message is sent instead, followed by the welcome set,
// and the original error is returned. Cancelling ctx does not abort the
// reply; only its values are used.
func (s *MessageService) HandleInbound(ctx context.Context, msg *model.InboundMessage) (*model.HandleResult, error) {
	ctx = context.WithoutCancel(ctx)
	correlationID := logger.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
		ctx = logger.ContextWithCorrelationID(ctx, correlationID)
	}
	log := s.logger.WithContext(correlationID, msg.From)

	switch msg.Type {
	case model.MessageTypeText, model.MessageTypeInteractive, model.MessageTypeButton:
	default:
		return s.unsupported(ctx, msg, log)
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		log.Warn("empty message received", zap.String("type", string(msg.Type)))
		return nil, ErrEmptyMessage
	}

	if msg.ReplyID != "" {
		text = s.resolveSelection(msg.ReplyID, text)
	}
	lang := quickreply.DetectLanguage(text)

	history, err := s.history.Recent(ctx, msg.From, s.historyLimit)
	if err != nil {
		log.Warn("failed to load history", zap.Error(err))
		history = nil
	}

	intent := s.route(ctx, text, log)
	reply := s.answer(ctx, intent, text, lang)

	result := &model.HandleResult{
		Recipient: msg.From,
		Intent:    intent,
		Reply:     reply,
		Language:  string(lang),
	}

	delivery, err := s.dispatcher.Send(ctx, &gateway.Request{
		Kind:          gateway.KindText,
		Recipient:     msg.From,
		PhoneNumberID: msg.PhoneNumberID,
		Text:          reply,
		ReplyTo:       msg.ID,
		Metadata:      map[string]string{"intent": intent, "correlation_id": correlationID},
	})
	if err != nil {
		log.Error("failed to send reply", zap.String("intent", intent), zap.Error(err))
		s.fallback(ctx, msg, err, log)
		result.Intent = IntentFallback
		result.Reply = FallbackMessage(err, msg.DisplayName)
		result.Strategy = model.StrategyWelcome
		return result, fmt.Errorf("failed to send reply: %w", err)
	}
	result.Delivery = delivery

	s.remember(ctx, msg.From, text, reply, log)

	in := quickreply.Input{
		Message:       text,
		BotReply:      reply,
		History:       history,
		WasQuickReply: msg.IsQuickReply(),
	}
	decision := s.decider.Decide(in)
	metrics.QuickReplyDecisions.WithLabelValues(string(decision.Strategy), string(decision.Reason)).Inc()
	result.Strategy = decision.Strategy
	result.Reason = string(decision.Reason)

	log.Info("inbound message answered",
		zap.String("intent", intent),
		zap.String("language", string(lang)),
		zap.String("strategy", string(decision.Strategy)),
		zap.String("reason", string(decision.Reason)),
	)

	if set := s.builder.Build(decision, in, lang); set != nil {
		result.QuickReply = set
		s.scheduleSet(ctx, msg, set, s.quickReplyDelay, log)
	}

	return result, nil
}

// resolveSelection maps a tapped option back to its full label. Taps the
// catalog does not know keep their visible title.
func (s *MessageService) resolveSelection(id, title string) string {
	strategy, cat, _, ok := quickreply.ParseID(id)
	if !ok {
		return title
	}
	label, ok := s.builder.Resolve(id, quickreply.DetectLanguage(title))
	if !ok {
		return title
	}
	metrics.QuickReplySelections.WithLabelValues(string(strategy), cat).Inc()
	return label
}

// route classifies text into one of Intents. Any failure is a knowledge lookup.
func (s *MessageService) route(ctx context.Context, text string, log *logger.Logger) string {
	if s.classifier == nil {
		return IntentKnowledge
	}
	intent, err := s.classifier.Classify(ctx, text, Intents)
	if err != nil {
		log.Debug("intent classification failed", zap.Error(err))
		return IntentKnowledge
	}
	return intent
}

func (s *MessageService) answer(ctx context.Context, intent, text string, lang quickreply.Language) string {
	switch intent {
	case IntentSmallTalk:
		if lang == quickreply.Marathi {
			return smallTalkMarathi
		}
		return smallTalkEnglish
	case IntentSymptom:
		if s.triage != nil {
			return s.triage.Assess(ctx, text).Text
		}
	}
	if s.knowledge == nil {
		return knowledge.NoCorpusMessage
	}
	return s.knowledge.Lookup(ctx, text).Text
}

func (s *MessageService) remember(ctx context.Context, recipient, text, reply string, log *logger.Logger) {
	cat := s.detector.Detect(text)
	turn := model.ConversationTurn{Role: model.RoleUser, Content: text}
	if cat != category.None {
		turn.Category = string(cat)
	}
	err := s.history.Append(ctx, recipient,
		turn,
		model.ConversationTurn{Role: model.RoleAssistant, Content: reply},
	)
	if err != nil {
		log.Warn("failed to save history", zap.Error(err))
	}
}

func (s *MessageService) scheduleSet(ctx context.Context, msg *model.InboundMessage, set *model.QuickReplySet, delay time.Duration, log *logger.Logger) {
	if s.scheduler == nil {
		return
	}
	req := &gateway.Request{
		Kind:          gateway.KindInteractive,
		Recipient:     msg.From,
		PhoneNumberID: msg.PhoneNumberID,
		Interactive:   quickreply.Interactive(set),
		Metadata:      map[string]string{"strategy": string(set.Strategy)},
	}
	err := s.scheduler.Schedule(ctx, "quick_reply", delay, func(ctx context.Context) error {
		_, err := s.dispatcher.Send(ctx, req)
		return err
	})
	if err != nil {
		log.Warn("failed to schedule quick replies", zap.Error(err))
	}
}

func (s *MessageService) fallback(ctx context.Context, msg *model.InboundMessage, cause error, log *logger.Logger) {
	_, err := s.dispatcher.Send(ctx, &gateway.Request{
		Kind:          gateway.KindText,
		Recipient:     msg.From,
		PhoneNumberID: msg.PhoneNumberID,
		Text:          FallbackMessage(cause, msg.DisplayName),
	})
	if err != nil {
		log.Error("failed to send fallback message", zap.Error(err))
	}
	s.scheduleSet(ctx, msg, s.builder.Welcome(quickreply.English), s.fallbackDelay, log)
}

func (s *MessageService) unsupported(ctx context.Context, msg *model.InboundMessage, log *logger.Logger) (*model.HandleResult, error) {
	reply := UnsupportedMessage(msg.DisplayName)
	log.Info("unsupported message type", zap.String("type", string(msg.Type)))

	delivery, err := s.dispatcher.Send(ctx, &gateway.Request{
		Kind:          gateway.KindText,
		Recipient:     msg.From,
		PhoneNumberID: msg.PhoneNumberID,
		Text:          reply,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send unsupported-type reply: %w", err)
	}
	return &model.HandleResult{
		Recipient: msg.From,
		Intent:    IntentUnhandled,
		Reply:     reply,
		Delivery:  delivery,
		Strategy:  model.StrategyNone,
	}, nil
}

// FallbackMessage is the bilingual apology sent when a reply fails.
func FallbackMessage(err error, name string) string {
	if name != "" {
		name = " " + name
	}

	var gwErr *gateway.Error
	switch {
	case errors.Is(err, gateway.ErrRateLimited):
		return fmt.Sprintf("🙏 Dear%s, I'm currently experiencing high traffic. Please try again in a few minutes. / प्रिय%s, सध्या जास्त गर्दी आहे. कृपया काही मिनिटांनी पुन्हा प्रयत्न करा.", name, name)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &gwErr) && gwErr.StatusCode == 0:
		return fmt.Sprintf("🔌 Dear%s, I'm experiencing network issues. Please try again shortly. / प्रिय%s, नेटवर्क समस्या आहे. कृपया लवकरच पुन्हा प्रयत्न करा.", name, name)
	}
	return fmt.Sprintf("🤖 Dear%s, I encountered a technical issue. Please try rephrasing your question or contact our support. / प्रिय%s, तांत्रिक समस्या आली. कृपया आपला प्रश्न वेगळ्या पद्धतीने विचारा किंवा आमच्या सहाय्य टीमशी संपर्क साधा.", name, name)
}

// UnsupportedMessage is the reply to non-text messages.
func UnsupportedMessage(name string) string {
	if name != "" {
		return fmt.Sprintf("Dear %s, I can only process text messages. Please send your query in text format. / प्रिय %s, मी फक्त मजकूर संदेश प्रक्रिया करू शकतो. कृपया आपला प्रश्न मजकूर स्वरूपात पाठवा.", name, name)
	}
	return "I can only process text messages. Please send your query in text format. / मी फक्त मजकूर संदेश प्रक्रिया करू शकतो. कृपया आपला प्रश्न मजकूर स्वरूपात पाठवा."
}
