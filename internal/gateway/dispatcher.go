package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/dispatch-core/internal/chunk"
	"github.com/capitalize-ai/dispatch-core/internal/model"
	"github.com/capitalize-ai/dispatch-core/internal/ratelimit"
	"github.com/capitalize-ai/dispatch-core/pkg/logger"
	"github.com/capitalize-ai/dispatch-core/pkg/metrics"
)

// DefaultPartDelay is the pause between consecutive parts of one text so the
// gateway displays them in order.
const DefaultPartDelay = 500 * time.Millisecond

// Sender posts a single message to the gateway.
type Sender interface {
	Post(ctx context.Context, phoneNumberID string, msg *Message) (string, error)
}

// Limiter gates sends per message class.
type Limiter interface {
	TryAcquire(class ratelimit.Class) bool
}

// DeliveryLog persists one audit record per send attempt.
type DeliveryLog interface {
	Record(ctx context.Context, rec *model.DeliveryRecord) error
}

// Request is one outbound send. Exactly the payload matching Kind is used.
type Request struct {
	Kind          Kind              `json:"kind"`
	Recipient     string            `json:"recipient"`
	PhoneNumberID string            `json:"phone_number_id,omitempty"`
	Text          string            `json:"text,omitempty"`
	PreviewURL    bool              `json:"preview_url,omitempty"`
	Interactive   *Interactive      `json:"interactive,omitempty"`
	Template      *Template         `json:"template,omitempty"`
	ReplyTo       string            `json:"reply_to,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Dispatcher validates, rate limits, chunks and sends outbound messages and
// records every attempt. A failed send is never retried.
type Dispatcher struct {
	sender    Sender
	limiter   Limiter
	log       DeliveryLog
	logger    *logger.Logger
	tracer    trace.Tracer
	maxLength int
	partDelay time.Duration
	sleep     func(time.Duration)
	now       func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithDeliveryLog(log DeliveryLog) Option {
	return func(d *Dispatcher) { d.log = log }
}

func WithLogger(log *logger.Logger) Option {
	return func(d *Dispatcher) { d.logger = log }
}

// WithMaxLength sets the longest text part, in characters.
func WithMaxLength(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxLength = n
		}
	}
}

func WithPartDelay(delay time.Duration) Option {
	return func(d *Dispatcher) { d.partDelay = delay }
}

// WithSleep replaces time.Sleep for the pause between parts.
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Dispatcher) { d.sleep = sleep }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a Dispatcher. Without WithDeliveryLog records are
// written to the logger.
func NewDispatcher(sender Sender, limiter Limiter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:    sender,
		limiter:   limiter,
		logger:    logger.Global(),
		tracer:    otel.Tracer("dispatch-core/gateway"),
		maxLength: chunk.DefaultMaxLength,
		partDelay: DefaultPartDelay,
		sleep:     time.Sleep,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = NewLogRecorder(d.logger)
	}
	return d
}

// SendText sends body to recipient, split into parts when it is too long.
func (d *Dispatcher) SendText(ctx context.Context, phoneNumberID, recipient, body string) (*model.DeliveryResult, error) {
	return d.Send(ctx, &Request{Kind: KindText, PhoneNumberID: phoneNumberID, Recipient: recipient, Text: body})
}

// SendInteractive sends a button or list interactive to recipient.
func (d *Dispatcher) SendInteractive(ctx context.Context, phoneNumberID, recipient string, interactive *Interactive) (*model.DeliveryResult, error) {
	return d.Send(ctx, &Request{Kind: KindInteractive, PhoneNumberID: phoneNumberID, Recipient: recipient, Interactive: interactive})
}

// Send delivers req. It fails with a *ValidationError for malformed input,
// ErrRateLimited when the class budget is spent and *Error when the gateway
// rejects a part. Text parts after a failed part are not sent.
func (d *Dispatcher) Send(ctx context.Context, req *Request) (*model.DeliveryResult, error) {
	ctx, span := d.tracer.Start(ctx, "gateway.Send",
		trace.WithAttributes(attribute.String("gateway.kind", string(req.Kind))),
	)
	defer span.End()

	start := d.now()
	recipient := NormalizeRecipient(req.Recipient)

	result, err := d.send(ctx, recipient, req)
	elapsed := d.now().Sub(start)

	status := model.DeliverySent
	if err != nil {
		status = model.DeliveryFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RecordSend(string(req.Kind), string(status), elapsed.Seconds())

	d.record(ctx, d.newRecord(recipient, req, result, err))

	if err != nil {
		d.logger.Warn("outbound send failed",
			zap.String("kind", string(req.Kind)),
			zap.String("recipient", recipient),
			zap.Error(err),
		)
		return nil, err
	}

	result.Duration = elapsed
	span.SetAttributes(attribute.Int("gateway.parts", len(result.Parts)))
	d.logger.Debug("outbound send delivered",
		zap.String("kind", string(req.Kind)),
		zap.String("recipient", recipient),
		zap.Int("parts", len(result.Parts)),
		zap.Duration("duration", elapsed),
	)
	return result, nil
}

func (d *Dispatcher) send(ctx context.Context, recipient string, req *Request) (*model.DeliveryResult, error) {
	if err := validate(recipient, req); err != nil {
		return nil, err
	}
	if d.limiter != nil && !d.limiter.TryAcquire(ratelimit.Class(req.Kind)) {
		return nil, fmt.Errorf("%w: %s messages", ErrRateLimited, req.Kind)
	}

	result := &model.DeliveryResult{Kind: string(req.Kind), Recipient: recipient}

	if req.Kind != KindText {
		msg := d.envelope(recipient, req)
		msg.Interactive = req.Interactive
		msg.Template = req.Template
		id, err := d.sender.Post(ctx, req.PhoneNumberID, msg)
		if err != nil {
			return result, err
		}
		result.Parts = append(result.Parts, model.PartResult{MessageID: id, Part: 1, Total: 1})
		return result, nil
	}

	parts := chunk.Split(req.Text, d.maxLength)
	for i, part := range parts {
		msg := d.envelope(recipient, req)
		msg.Text = &Text{PreviewURL: req.PreviewURL, Body: part}
		if i > 0 {
			msg.Context = nil
		}

		id, err := d.sender.Post(ctx, req.PhoneNumberID, msg)
		if err != nil {
			return result, err
		}
		metrics.GatewayMessageParts.Inc()
		result.Parts = append(result.Parts, model.PartResult{MessageID: id, Part: i + 1, Total: len(parts)})

		if i < len(parts)-1 && d.partDelay > 0 {
			d.sleep(d.partDelay)
		}
	}
	return result, nil
}

func (d *Dispatcher) envelope(recipient string, req *Request) *Message {
	msg := &Message{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient,
		Type:             req.Kind,
	}
	if req.ReplyTo != "" {
		msg.Context = &MessageContext{MessageID: req.ReplyTo}
	}
	return msg
}

func (d *Dispatcher) newRecord(recipient string, req *Request, result *model.DeliveryResult, err error) *model.DeliveryRecord {
	rec := &model.DeliveryRecord{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Kind:      string(req.Kind),
		Size:      payloadSize(req),
		Direction: model.DirectionOutgoing,
		Status:    model.DeliverySent,
		Timestamp: d.now().UTC(),
		Metadata:  make(map[string]string, len(req.Metadata)+2),
	}
	for k, v := range req.Metadata {
		rec.Metadata[k] = v
	}
	if req.Interactive != nil {
		rec.Metadata["interactive_type"] = string(req.Interactive.Type)
	}
	if result != nil {
		rec.Metadata["parts_sent"] = strconv.Itoa(len(result.Parts))
	}

	if err != nil {
		rec.Status = model.DeliveryFailed
		rec.ErrorMessage = err.Error()
		var gwErr *Error
		if errors.As(err, &gwErr) {
			rec.ErrorCode = gwErr.Code
			rec.ErrorType = gwErr.Type
		}
	}
	return rec
}

// record writes rec without ever failing the send it describes.
func (d *Dispatcher) record(ctx context.Context, rec *model.DeliveryRecord) {
	defer func() {
		if r := recover(); r != nil {
			metrics.DeliveryLogFailures.Inc()
			d.logger.Error("delivery log panicked", zap.String("record_id", rec.ID), zap.Any("panic", r))
		}
	}()
	if err := d.log.Record(ctx, rec); err != nil {
		metrics.DeliveryLogFailures.Inc()
		d.logger.Warn("failed to write delivery record",
			zap.String("record_id", rec.ID),
			zap.String("status", string(rec.Status)),
			zap.Error(err),
		)
	}
}

func validate(recipient string, req *Request) error {
	if recipient == "" {
		return &ValidationError{Field: "recipient", Reason: "must contain digits"}
	}
	switch req.Kind {
	case KindText:
		if strings.TrimSpace(req.Text) == "" {
			return &ValidationError{Field: "text", Reason: "body must not be empty"}
		}
	case KindInteractive:
		return ValidateInteractive(req.Interactive)
	case KindTemplate:
		if req.Template == nil || strings.TrimSpace(req.Template.Name) == "" {
			return &ValidationError{Field: "template", Reason: "name is required"}
		}
	default:
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unsupported message kind %q", req.Kind)}
	}
	return nil
}

// ValidateInteractive checks the shape the gateway requires: a body, and
// either 1 to 3 reply buttons or at least one section.
func ValidateInteractive(in *Interactive) error {
	if in == nil {
		return &ValidationError{Field: "interactive", Reason: "payload is required"}
	}
	if in.Body == nil || strings.TrimSpace(in.Body.Text) == "" {
		return &ValidationError{Field: "interactive.body", Reason: "text is required"}
	}
	switch in.Type {
	case InteractiveButton:
		if in.Action == nil || len(in.Action.Buttons) == 0 || len(in.Action.Buttons) > MaxButtons {
			return &ValidationError{Field: "interactive.action.buttons", Reason: "must carry 1 to 3 buttons"}
		}
	case InteractiveList:
		if in.Action == nil || len(in.Action.Sections) == 0 {
			return &ValidationError{Field: "interactive.action.sections", Reason: "must carry at least one section"}
		}
	default:
		return &ValidationError{Field: "interactive.type", Reason: fmt.Sprintf("unsupported type %q", in.Type)}
	}
	return nil
}

// NormalizeRecipient strips everything but ASCII digits.
func NormalizeRecipient(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func payloadSize(req *Request) int {
	switch {
	case req.Kind == KindText:
		return len(req.Text)
	case req.Interactive != nil:
		raw, _ := json.Marshal(req.Interactive)
		return len(raw)
	case req.Template != nil:
		raw, _ := json.Marshal(req.Template)
		return len(raw)
	}
	return 0
}

// LogRecorder writes delivery records to a logger. It is the fallback when no
// durable delivery log is configured.
type LogRecorder struct {
	logger *logger.Logger
}

func NewLogRecorder(log *logger.Logger) *LogRecorder {
	return &LogRecorder{logger: log.Named("delivery")}
}

func (r *LogRecorder) Record(_ context.Context, rec *model.DeliveryRecord) error {
	fields := []zap.Field{
		zap.String("record_id", rec.ID),
		zap.String("recipient", rec.Recipient),
		zap.String("kind", rec.Kind),
		zap.Int("size", rec.Size),
		zap.String("status", string(rec.Status)),
		zap.Time("timestamp", rec.Timestamp),
		zap.Any("metadata", rec.Metadata),
	}
	if rec.Status == model.DeliveryFailed {
		fields = append(fields,
			zap.String("error_message", rec.ErrorMessage),
			zap.Int("error_code", rec.ErrorCode),
			zap.String("error_type", rec.ErrorType),
		)
	}
	r.logger.Info("delivery", fields...)
	return nil
}
