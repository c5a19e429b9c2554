package model

import (
	"time"
)

// MessageType is the gateway's type tag for an inbound message.
type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeInteractive MessageType = "interactive"
	MessageTypeButton      MessageType = "button"
)

// InboundMessage is a normalized inbound user message.
type InboundMessage struct {
	ID            string      `json:"id"`
	From          string      `json:"from"`
	PhoneNumberID string      `json:"phone_number_id,omitempty"`
	DisplayName   string      `json:"display_name,omitempty"`
	Type          MessageType `json:"type"`
	Text          string      `json:"text"`

	// ReplyID is the option identifier when the message is a quick-reply tap.
	ReplyID string `json:"reply_id,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}

// IsQuickReply reports whether the user tapped a suggestion instead of typing.
func (m *InboundMessage) IsQuickReply() bool {
	return m.Type == MessageTypeInteractive || m.Type == MessageTypeButton
}
