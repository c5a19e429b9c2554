package model

import (
	"time"
)

// DeliveryStatus is the outcome of an outbound send.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// Direction of a logged message.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
)

// DeliveryRecord is the audit entry written for every send attempt.
type DeliveryRecord struct {
	ID           string            `json:"id"`
	Recipient    string            `json:"recipient"`
	Kind         string            `json:"kind"`
	Size         int               `json:"size"`
	Direction    Direction         `json:"direction"`
	Status       DeliveryStatus    `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	ErrorMessage string            `json:"error_message,omitempty"`
	ErrorCode    int               `json:"error_code,omitempty"`
	ErrorType    string            `json:"error_type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// PartResult describes one gateway message produced by a send.
type PartResult struct {
	MessageID string `json:"message_id"`
	Part      int    `json:"part"`
	Total     int    `json:"total"`
}

// DeliveryResult is returned by a successful send.
type DeliveryResult struct {
	Kind      string        `json:"kind"`
	Recipient string        `json:"recipient"`
	Parts     []PartResult  `json:"parts"`
	Duration  time.Duration `json:"duration"`
}

// ListDeliveriesResponse is a page of the delivery log.
type ListDeliveriesResponse struct {
	Deliveries   []DeliveryRecord `json:"deliveries"`
	HasMore      bool             `json:"has_more"`
	LastSequence uint64           `json:"last_sequence"`
}
