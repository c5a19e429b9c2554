// Package model defines data structures shared by the dispatch core.
package model

import (
	"time"
)

// Role represents the role of a conversation participant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one entry of a recipient's recent history. Category is
// empty when no domain category was attached to the turn.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// HandleResult summarises how one inbound event was answered.
type HandleResult struct {
	Recipient  string          `json:"recipient"`
	Intent     string          `json:"intent"`
	Reply      string          `json:"reply"`
	Language   string          `json:"language"`
	Delivery   *DeliveryResult `json:"delivery,omitempty"`
	QuickReply *QuickReplySet  `json:"quick_reply,omitempty"`
	Strategy   Strategy        `json:"strategy"`
	Reason     string          `json:"reason"`
}
