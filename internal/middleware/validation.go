package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	// MaxContentLength bounds free text accepted by the admin API.
	MaxContentLength = 100000
	// MaxQueryLength bounds knowledge and triage queries.
	MaxQueryLength = 2000
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("content cannot be empty")
	}
	if len(content) > MaxContentLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateQuery validates a lookup or triage query.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return errors.New("query cannot be empty")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return errors.New("query exceeds maximum length")
	}
	if !utf8.ValidString(query) {
		return errors.New("query must be valid UTF-8")
	}
	return nil
}

// ValidateRecipient validates a recipient phone number: 7 to 15 digits once
// separators are removed.
func ValidateRecipient(recipient string) error {
	digits := 0
	for _, r := range recipient {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return errors.New("recipient must be a phone number")
		}
	}
	if digits < 7 || digits > 15 {
		return errors.New("recipient must have 7 to 15 digits")
	}
	return nil
}
