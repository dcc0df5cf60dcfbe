package events

import (
	"fmt"
	"strings"
)

const (
	maxUserIDLength  = 128
	maxPayloadBytes  = 16 * 1024
	maxTitleLength   = 512
	maxTaskTypeChars = 100
)

var validKinds = map[Kind]bool{
	KindTaskCompleted:          true,
	KindEstimateResolved:       true,
	KindSuggestionOutcome:      true,
	KindNotificationEngagement: true,
	KindPreferenceUpdate:       true,
}

// ValidateEvent validates all fields of an event before storage.
// Structural problems are rejected here so the read path can assume
// well-formed lines.
func ValidateEvent(e *Event) error {
	if e == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if e.UserID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}
	if len(e.UserID) > maxUserIDLength {
		return fmt.Errorf("user_id too long (max %d chars, got %d)", maxUserIDLength, len(e.UserID))
	}
	if strings.ContainsAny(e.UserID, "\n\r\t/\\") {
		return fmt.Errorf("user_id contains invalid characters")
	}
	if !validKinds[e.Kind] {
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp cannot be zero")
	}
	if len(e.Payload) > maxPayloadBytes {
		return fmt.Errorf("payload too large (max %d bytes, got %d)", maxPayloadBytes, len(e.Payload))
	}
	return nil
}

// ValidateEstimationRecord validates an estimation record before storage.
func ValidateEstimationRecord(r *EstimationRecord) error {
	if r == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if r.TaskID == "" {
		return fmt.Errorf("task_id cannot be empty")
	}
	if r.TaskType == "" {
		return fmt.Errorf("task_type cannot be empty")
	}
	if len(r.TaskType) > maxTaskTypeChars {
		return fmt.Errorf("task_type too long (max %d chars)", maxTaskTypeChars)
	}
	switch r.TaskSize {
	case "small", "medium", "large", "":
	default:
		return fmt.Errorf("invalid task_size %q (want small, medium or large)", r.TaskSize)
	}
	if r.EstimatedMinutes < 0 {
		return fmt.Errorf("estimated_minutes cannot be negative")
	}
	if r.ActualMinutes < 0 {
		return fmt.Errorf("actual_minutes cannot be negative")
	}
	if len(r.Title) > maxTitleLength {
		return fmt.Errorf("title too long (max %d chars)", maxTitleLength)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("created_at cannot be zero")
	}
	return nil
}
