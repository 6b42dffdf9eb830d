package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role identifies who authored a chat bubble.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Message is a single bubble in the chat panel. It has no identity beyond its
// position in the transcript.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ConversationSummary is one row of the sidebar listing.
type ConversationSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ArchivedSummary is one row of the archive modal.
type ArchivedSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// Turn is one user/assistant exchange as stored by the backend.
type Turn struct {
	UserMessage string `json:"userMessage"`
	BotResponse string `json:"botResponse"`
}

// UntitledConversation is shown for conversations the backend has no title for.
const UntitledConversation = "(Untitled)"

// Record is a backend object whose shape is not guaranteed: the conversation
// service is known to name its id field in several different ways, so
// responses stay structurally open and are read through accessors.
type Record map[string]any

// Conversation is the backend-owned conversation document.
type Conversation struct {
	Record
}

// String returns the string value stored under key, or "" when the key is
// missing or not a string.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// Bool reports whether key holds a JSON true.
func (r Record) Bool(key string) bool {
	b, ok := r[key].(bool)
	return ok && b
}

// UserID is the owner of the conversation.
func (c Conversation) UserID() string { return c.String("userId") }

// Title is the raw title, possibly empty.
func (c Conversation) Title() string { return c.String("title") }

// Archived reports whether the conversation was moved to the archive.
func (c Conversation) Archived() bool { return c.Bool("archived") }

// CreatedAt parses the createdAt timestamp. The zero time is returned when it
// is missing or unparseable.
func (c Conversation) CreatedAt() time.Time {
	raw := c.String("createdAt")
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Turns decodes the turns array. Malformed entries are skipped.
func (c Conversation) Turns() []Turn {
	raw, ok := c.Record["turns"].([]any)
	if !ok {
		return nil
	}
	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec := Record(obj)
		turns = append(turns, Turn{
			UserMessage: rec.String("userMessage"),
			BotResponse: rec.String("botResponse"),
		})
	}
	return turns
}

// Summary projects the conversation onto a sidebar row. ok is false when no id
// can be resolved; such entries are dropped from listings.
func (c Conversation) Summary() (ConversationSummary, bool) {
	id, ok := ExtractID(c.Record)
	if !ok {
		return ConversationSummary{}, false
	}
	title := strings.TrimSpace(c.Title())
	if title == "" {
		title = UntitledConversation
	}
	return ConversationSummary{ID: id, Title: title}, true
}

// ArchivedSummary projects the conversation onto an archive modal row.
func (c Conversation) ArchivedSummary() (ArchivedSummary, bool) {
	s, ok := c.Summary()
	if !ok {
		return ArchivedSummary{}, false
	}
	row := ArchivedSummary{ID: s.ID, Title: s.Title}
	if t := c.CreatedAt(); !t.IsZero() {
		row.Date = t.Format("Jan 02, 2006")
	}
	return row, true
}

// UnmarshalJSON keeps the whole document as an open record.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decode conversation: %w", err)
	}
	c.Record = rec
	return nil
}

// MarshalJSON writes the record back out unchanged.
func (c Conversation) MarshalJSON() ([]byte, error) {
	if c.Record == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Record)
}

// FailureKind classifies a failed chat completion for the error bubble.
type FailureKind int

const (
	FailureGeneric FailureKind = iota
	FailureTimeout
	FailureHTTP
)

// RequestOutcome is the terminal state of one send/edit-resend request.
type RequestOutcome string

const (
	OutcomeDelivered RequestOutcome = "delivered"
	OutcomeCancelled RequestOutcome = "cancelled"
	OutcomeStale     RequestOutcome = "stale_discarded"
	OutcomeFailed    RequestOutcome = "failed"
)
