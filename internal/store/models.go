// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/attunehq/attune/internal/model"
)

// SaveUserModel upserts the user's model snapshot as one JSON document.
// The whole row is replaced in a single statement so a concurrent reader
// never observes a half-written model.
func (s *SQLStore) SaveUserModel(ctx context.Context, m *model.UserModel) error {
	if m == nil || m.UserID == "" {
		return fmt.Errorf("model with user_id is required")
	}

	content, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	query := s.rebind(fmt.Sprintf(`
		INSERT INTO %s (user_id, last_updated, content) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			last_updated = excluded.last_updated,
			content = excluded.content`,
		s.table("user_models")))

	if _, err := s.db.ExecContext(ctx, query, m.UserID, m.LastUpdated, string(content)); err != nil {
		return fmt.Errorf("failed to save model for %s: %w", m.UserID, err)
	}
	return nil
}

// LoadUserModel returns the last saved snapshot for the user, or nil when
// none exists.
func (s *SQLStore) LoadUserModel(ctx context.Context, userID string) (*model.UserModel, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}

	query := s.rebind(fmt.Sprintf(
		"SELECT content FROM %s WHERE user_id = ?", s.table("user_models")))

	var content string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model for %s: %w", userID, err)
	}

	var m model.UserModel
	if err := json.Unmarshal([]byte(content), &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model for %s: %w", userID, err)
	}
	return &m, nil
}

// DeleteUserModel removes the persisted snapshot for a user. Used by the
// model reset operation; the next rebuild recreates the row.
func (s *SQLStore) DeleteUserModel(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}

	query := s.rebind(fmt.Sprintf(
		"DELETE FROM %s WHERE user_id = ?", s.table("user_models")))
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete model for %s: %w", userID, err)
	}
	return nil
}
