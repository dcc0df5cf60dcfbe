// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/attunehq/attune/internal/events"
)

// AppendEstimationRecord stores one estimate-vs-actual fact. Records are
// append-only; there is no update path.
func (s *SQLStore) AppendEstimationRecord(ctx context.Context, userID string, r *events.EstimationRecord) error {
	if userID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}
	if r != nil && r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if err := events.ValidateEstimationRecord(r); err != nil {
		return err
	}

	query := s.rebind(fmt.Sprintf(`
		INSERT INTO %s (id, user_id, task_id, task_type, task_size,
			estimated_minutes, actual_minutes, title, project_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.table("estimation_records")))

	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(),
		userID,
		r.TaskID,
		r.TaskType,
		r.TaskSize,
		r.EstimatedMinutes,
		r.ActualMinutes,
		r.Title,
		r.ProjectID,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert estimation record: %w", err)
	}
	return nil
}

// EstimationRecords returns the user's records created at or after since,
// oldest first.
func (s *SQLStore) EstimationRecords(ctx context.Context, userID string, since time.Time) ([]*events.EstimationRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}

	query := s.rebind(fmt.Sprintf(`
		SELECT task_id, task_type, task_size, estimated_minutes,
		       actual_minutes, title, project_id, created_at
		FROM %s
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at`,
		s.table("estimation_records")))

	rows, err := s.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query estimation records: %w", err)
	}
	defer rows.Close()

	var records []*events.EstimationRecord
	for rows.Next() {
		r, err := scanEstimationRecord(rows)
		if err != nil {
			log.Warnf("Failed to scan estimation record: %v", err)
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating estimation records: %w", err)
	}
	return records, nil
}

// KnownUsers lists every user with a persisted model or at least one
// estimation record. The builder rebuilds models for exactly this set.
func (s *SQLStore) KnownUsers(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT user_id FROM %s
		UNION
		SELECT DISTINCT user_id FROM %s
		ORDER BY user_id`,
		s.table("user_models"), s.table("estimation_records"))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func scanEstimationRecord(rows *sql.Rows) (*events.EstimationRecord, error) {
	var r events.EstimationRecord
	var title, projectID sql.NullString

	err := rows.Scan(
		&r.TaskID,
		&r.TaskType,
		&r.TaskSize,
		&r.EstimatedMinutes,
		&r.ActualMinutes,
		&title,
		&projectID,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Title = title.String
	r.ProjectID = projectID.String
	return &r, nil
}
