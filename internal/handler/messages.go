package handler

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/capitalize-ai/dispatch-core/internal/gateway"
	"github.com/capitalize-ai/dispatch-core/internal/middleware"
	"github.com/capitalize-ai/dispatch-core/internal/model"
	"github.com/capitalize-ai/dispatch-core/pkg/logger"
)

// Dispatcher sends outbound messages.
type Dispatcher interface {
	Send(ctx context.Context, req *gateway.Request) (*model.DeliveryResult, error)
}

// DeliveryReader pages through the delivery log.
type DeliveryReader interface {
	RecentDeliveries(ctx context.Context, status model.DeliveryStatus, kind string, afterSequence uint64, limit int) ([]model.DeliveryRecord, uint64, bool, error)
}

// MessageHandler handles outbound message endpoints.
type MessageHandler struct {
	dispatcher Dispatcher
	deliveries DeliveryReader
	retryAfter int
	logger     *logger.Logger
}

// NewMessageHandler creates a new message handler. deliveries may be nil when
// the delivery log cannot be read back.
func NewMessageHandler(dispatcher Dispatcher, deliveries DeliveryReader, retryAfterSeconds int, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		dispatcher: dispatcher,
		deliveries: deliveries,
		retryAfter: retryAfterSeconds,
		logger:     log,
	}
}

// Send handles POST /api/v1/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req gateway.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateRecipient(req.Recipient); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Kind == "" {
		req.Kind = gateway.KindText
	}
	if req.Kind == gateway.KindText {
		if err := middleware.ValidateMessageContent(req.Text); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if req.Metadata == nil {
		req.Metadata = map[string]string{}
	}
	if id := middleware.GetOperatorID(r.Context()); id != "" {
		req.Metadata["operator_id"] = id
	}

	result, err := h.dispatcher.Send(r.Context(), &req)
	if err != nil {
		h.logger.Warn("admin send failed", zap.String("kind", string(req.Kind)), zap.Error(err))
		writeSendError(w, err, h.retryAfter)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ListDeliveries handles GET /api/v1/deliveries
func (h *MessageHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	if h.deliveries == nil {
		writeError(w, http.StatusNotImplemented, "delivery log is not readable")
		return
	}

	q := r.URL.Query()
	afterSequence := uint64(0)
	limit := 50

	if seq := q.Get("after_sequence"); seq != "" {
		if parsed, err := strconv.ParseUint(seq, 10, 64); err == nil {
			afterSequence = parsed
		}
	}

	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	status := model.DeliveryStatus(q.Get("status"))
	switch status {
	case "", model.DeliverySent, model.DeliveryFailed:
	default:
		writeError(w, http.StatusBadRequest, "status must be sent or failed")
		return
	}

	records, lastSeq, hasMore, err := h.deliveries.RecentDeliveries(r.Context(), status, q.Get("kind"), afterSequence, limit)
	if err != nil {
		h.logger.Error("failed to read deliveries", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read deliveries")
		return
	}
	if records == nil {
		records = []model.DeliveryRecord{}
	}

	writeJSON(w, http.StatusOK, &model.ListDeliveriesResponse{
		Deliveries:   records,
		HasMore:      hasMore,
		LastSequence: lastSeq,
	})
}
