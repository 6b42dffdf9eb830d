package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// idFields lists the field names the backend has been seen using for a
// conversation id, in resolution order.
var idFields = []string{"id", "_id", "conversationId", "conversationID", "conversation_id"}

// ExtractID resolves the id of an arbitrary backend object. Numeric ids are
// stringified; empty strings count as absent.
func ExtractID(rec Record) (string, bool) {
	for _, field := range idFields {
		v, ok := rec[field]
		if !ok || v == nil {
			continue
		}
		switch id := v.(type) {
		case string:
			if id != "" {
				return id, true
			}
		case float64:
			return strconv.FormatFloat(id, 'f', -1, 64), true
		case json.Number:
			return id.String(), true
		case int:
			return strconv.Itoa(id), true
		case int64:
			return strconv.FormatInt(id, 10), true
		}
	}
	return "", false
}

// NormalizeID returns the trimmed id, or "" when the value is blank or a
// stringified null that leaked through a storage round-trip.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	switch id {
	case "", "null", "undefined":
		return ""
	}
	return id
}
