package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/dispatch-core/internal/model"
	"github.com/capitalize-ai/dispatch-core/internal/service"
	"github.com/capitalize-ai/dispatch-core/pkg/logger"
)

// BusinessAccountObject is the object tag of gateway message events.
const BusinessAccountObject = "whatsapp_business_account"

// InboundHandler answers one normalized inbound message.
type InboundHandler interface {
	HandleInbound(ctx context.Context, msg *model.InboundMessage) (*model.HandleResult, error)
}

// WebhookEvent is the gateway's inbound event envelope.
type WebhookEvent struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         WebhookMetadata  `json:"metadata"`
	Contacts         []WebhookContact `json:"contacts"`
	Messages         []WebhookMessage `json:"messages"`
}

type WebhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type WebhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// WebhookMessage is one inbound message. Only the field matching Type is set.
type WebhookMessage struct {
	ID          string              `json:"id"`
	From        string              `json:"from"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *WebhookText        `json:"text,omitempty"`
	Interactive *WebhookInteractive `json:"interactive,omitempty"`
	Button      *WebhookButton      `json:"button,omitempty"`
}

type WebhookText struct {
	Body string `json:"body"`
}

type WebhookInteractive struct {
	Type        string        `json:"type"`
	ButtonReply *WebhookReply `json:"button_reply,omitempty"`
	ListReply   *WebhookReply `json:"list_reply,omitempty"`
}

type WebhookReply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type WebhookButton struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// InboundMessages flattens every message of the event.
func (e *WebhookEvent) InboundMessages(now time.Time) []*model.InboundMessage {
	var out []*model.InboundMessage
	for _, entry := range e.Entry {
		for _, change := range entry.Changes {
			v := change.Value
			for _, m := range v.Messages {
				out = append(out, toInbound(m, v, now))
			}
		}
	}
	return out
}

func toInbound(m WebhookMessage, v WebhookValue, now time.Time) *model.InboundMessage {
	msg := &model.InboundMessage{
		ID:            m.ID,
		From:          m.From,
		PhoneNumberID: v.Metadata.PhoneNumberID,
		DisplayName:   displayName(m.From, v.Contacts),
		Type:          model.MessageType(m.Type),
		ReceivedAt:    now,
	}
	if sec, err := strconv.ParseInt(m.Timestamp, 10, 64); err == nil && sec > 0 {
		msg.ReceivedAt = time.Unix(sec, 0).UTC()
	}

	switch msg.Type {
	case model.MessageTypeText:
		if m.Text != nil {
			msg.Text = m.Text.Body
		}
	case model.MessageTypeInteractive:
		if m.Interactive == nil {
			break
		}
		reply := m.Interactive.ButtonReply
		if m.Interactive.Type == "list_reply" || reply == nil {
			reply = m.Interactive.ListReply
		}
		if reply != nil {
			msg.Text = reply.Title
			msg.ReplyID = reply.ID
		}
	case model.MessageTypeButton:
		if m.Button != nil {
			msg.Text = m.Button.Text
			if msg.Text == "" {
				msg.Text = m.Button.Payload
			}
			msg.ReplyID = m.Button.Payload
		}
	}
	return msg
}

func displayName(from string, contacts []WebhookContact) string {
	for _, c := range contacts {
		if c.WaID == from {
			return c.Profile.Name
		}
	}
	if len(contacts) > 0 {
		return contacts[0].Profile.Name
	}
	return ""
}

// WebhookHandler receives gateway events.
type WebhookHandler struct {
	inbound InboundHandler
	logger  *logger.Logger
	now     func() time.Time
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(inbound InboundHandler, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		inbound: inbound,
		logger:  log.Named("webhook"),
		now:     time.Now,
	}
}

// Receive handles POST /webhook. Every well-formed event is acknowledged
// with 200 so the gateway does not redeliver it; failures are logged.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var event WebhookEvent
	if err := decodeJSON(w, r, &event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if event.Object != BusinessAccountObject {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ignored"})
		return
	}

	// The gateway may drop the connection before replies are out.
	ctx := context.WithoutCancel(r.Context())

	processed, failed := 0, 0
	for _, msg := range event.InboundMessages(h.now()) {
		_, err := h.inbound.HandleInbound(ctx, msg)
		switch {
		case err == nil:
			processed++
		case errors.Is(err, service.ErrEmptyMessage):
		default:
			failed++
			h.logger.Error("failed to handle inbound message",
				zap.String("message_id", msg.ID),
				zap.String("type", string(msg.Type)),
				zap.Error(err),
			)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "received",
		"processed": processed,
		"failed":    failed,
	})
}
