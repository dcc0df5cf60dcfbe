// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Notification delivery statuses tracked for grouping and analytics.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDismissed = "dismissed"
)

// SentNotification is the delivery bookkeeping row for one notification.
type SentNotification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordNotification stores a delivery row. A missing ID gets a generated
// one; a missing status defaults to pending.
func (s *SQLStore) RecordNotification(ctx context.Context, n *SentNotification) error {
	if n == nil {
		return fmt.Errorf("notification cannot be nil")
	}
	if n.UserID == "" || n.Type == "" {
		return fmt.Errorf("user_id and type are required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = StatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	query := s.rebind(fmt.Sprintf(`
		INSERT INTO %s (id, user_id, notification_type, priority, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.table("sent_notifications")))

	_, err := s.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.Type, n.Priority, n.Status, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

// MarkNotificationStatus transitions a delivery row to a new status.
func (s *SQLStore) MarkNotificationStatus(ctx context.Context, id, status string) error {
	if id == "" {
		return fmt.Errorf("notification id cannot be empty")
	}
	switch status {
	case StatusPending, StatusSent, StatusDismissed:
	default:
		return fmt.Errorf("invalid status %q", status)
	}

	query := s.rebind(fmt.Sprintf(
		"UPDATE %s SET status = ? WHERE id = ?", s.table("sent_notifications")))
	if _, err := s.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	return nil
}

// PendingSameType lists pending notifications of one type for a user,
// created at or after since. The scheduler batches new notifications with
// these.
func (s *SQLStore) PendingSameType(ctx context.Context, userID, notificationType string, since time.Time) ([]string, error) {
	if userID == "" || notificationType == "" {
		return nil, fmt.Errorf("user_id and type are required")
	}

	query := s.rebind(fmt.Sprintf(`
		SELECT id FROM %s
		WHERE user_id = ? AND notification_type = ? AND status = ? AND created_at >= ?
		ORDER BY created_at`,
		s.table("sent_notifications")))

	rows, err := s.db.QueryContext(ctx, query, userID, notificationType, StatusPending, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending notifications: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan notification id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending notifications: %w", err)
	}
	return ids, nil
}

// RecordSuggestionOutcome stores whether a suggestion was accepted.
// Suggestion history complements the event log with a queryable projection
// for analytics.
func (s *SQLStore) RecordSuggestionOutcome(ctx context.Context, userID, suggestionType string, accepted bool, shownAt time.Time) error {
	if userID == "" || suggestionType == "" {
		return fmt.Errorf("user_id and suggestion_type are required")
	}
	if shownAt.IsZero() {
		shownAt = time.Now()
	}

	query := s.rebind(fmt.Sprintf(`
		INSERT INTO %s (id, user_id, suggestion_type, accepted, shown_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.table("suggestion_history")))

	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), userID, suggestionType, accepted, shownAt)
	if err != nil {
		return fmt.Errorf("failed to record suggestion outcome: %w", err)
	}
	return nil
}

// SuggestionAcceptance returns per-type (accepted, total) counts for a user.
func (s *SQLStore) SuggestionAcceptance(ctx context.Context, userID string) (map[string][2]int, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}

	query := s.rebind(fmt.Sprintf(`
		SELECT suggestion_type,
		       SUM(CASE WHEN accepted THEN 1 ELSE 0 END),
		       COUNT(*)
		FROM %s
		WHERE user_id = ?
		GROUP BY suggestion_type`,
		s.table("suggestion_history")))

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestion acceptance: %w", err)
	}
	defer rows.Close()

	stats := make(map[string][2]int)
	for rows.Next() {
		var sType string
		var accepted, total int
		if err := rows.Scan(&sType, &accepted, &total); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion stats: %w", err)
		}
		stats[sType] = [2]int{accepted, total}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestion stats: %w", err)
	}
	return stats, nil
}

// CleanupOldDeliveries removes suggestion and notification bookkeeping past
// the retention window. Estimation records are never cleaned up here; they
// are the source of truth for recalibration.
func (s *SQLStore) CleanupOldDeliveries(ctx context.Context, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	for table, column := range map[string]string{
		"sent_notifications": "created_at",
		"suggestion_history": "shown_at",
	} {
		query := s.rebind(fmt.Sprintf(
			"DELETE FROM %s WHERE %s < ?", s.table(table), column))
		result, err := s.db.ExecContext(ctx, query, cutoff)
		if err != nil {
			log.Warnf("Failed to clean up old %s rows: %v", table, err)
			continue
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			log.Infof("Cleaned up %d old %s rows (older than %d days)", n, table, retentionDays)
		}
	}
}
