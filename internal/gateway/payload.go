// Package gateway delivers outbound messages to the messaging gateway's
// Cloud API under per-class rate budgets.
package gateway

import (
	"encoding/json"
)

// Kind is the outbound message kind, which is also its rate-limit class.
type Kind string

const (
	KindText        Kind = "text"
	KindInteractive Kind = "interactive"
	KindTemplate    Kind = "template"
)

// InteractiveType selects the interactive sub-schema.
type InteractiveType string

const (
	InteractiveButton InteractiveType = "button"
	InteractiveList   InteractiveType = "list"
)

// MaxButtons is the most reply buttons a button interactive may carry.
const MaxButtons = 3

// Message is the request body of POST /{phoneNumberId}/messages.
type Message struct {
	MessagingProduct string          `json:"messaging_product"`
	RecipientType    string          `json:"recipient_type"`
	To               string          `json:"to"`
	Type             Kind            `json:"type"`
	Context          *MessageContext `json:"context,omitempty"`
	Text             *Text           `json:"text,omitempty"`
	Interactive      *Interactive    `json:"interactive,omitempty"`
	Template         *Template       `json:"template,omitempty"`
}

// MessageContext marks a message as a reply to an earlier one.
type MessageContext struct {
	MessageID string `json:"message_id"`
}

type Text struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// Interactive is a button or list message.
type Interactive struct {
	Type   InteractiveType `json:"type"`
	Header *Header         `json:"header,omitempty"`
	Body   *Body           `json:"body,omitempty"`
	Footer *Footer         `json:"footer,omitempty"`
	Action *Action         `json:"action,omitempty"`
}

type Header struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Body struct {
	Text string `json:"text"`
}

type Footer struct {
	Text string `json:"text"`
}

// Action holds reply buttons for a button interactive, or a menu button
// label and sections for a list interactive.
type Action struct {
	Button   string    `json:"button,omitempty"`
	Buttons  []Button  `json:"buttons,omitempty"`
	Sections []Section `json:"sections,omitempty"`
}

type Button struct {
	Type  string      `json:"type"`
	Reply ButtonReply `json:"reply"`
}

type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Section struct {
	Title string `json:"title,omitempty"`
	Rows  []Row  `json:"rows"`
}

type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Template references a pre-approved template. Components are passed through
// untouched; building them is the caller's concern.
type Template struct {
	Name       string            `json:"name"`
	Language   TemplateLanguage  `json:"language"`
	Components []json.RawMessage `json:"components,omitempty"`
}

type TemplateLanguage struct {
	Code string `json:"code"`
}

// NewButtons builds a button interactive with one reply button per option.
func NewButtons(body string, replies ...ButtonReply) *Interactive {
	buttons := make([]Button, len(replies))
	for i, r := range replies {
		buttons[i] = Button{Type: "reply", Reply: r}
	}
	return &Interactive{
		Type:   InteractiveButton,
		Body:   &Body{Text: body},
		Action: &Action{Buttons: buttons},
	}
}

// NewList builds a list interactive opened by a menu button labelled label.
func NewList(body, label string, sections ...Section) *Interactive {
	if label == "" {
		label = "Select Option"
	}
	return &Interactive{
		Type:   InteractiveList,
		Body:   &Body{Text: body},
		Action: &Action{Button: label, Sections: sections},
	}
}

// sendResponse is the gateway's success envelope.
type sendResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Messages         []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// errorResponse is the gateway's failure envelope.
type errorResponse struct {
	Error struct {
		Message   string          `json:"message"`
		Type      string          `json:"type"`
		Code      int             `json:"code"`
		ErrorData json.RawMessage `json:"error_data,omitempty"`
		TraceID   string          `json:"fbtrace_id,omitempty"`
	} `json:"error"`
}
