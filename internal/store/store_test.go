// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attunehq/attune/internal/config"
	"github.com/attunehq/attune/internal/events"
	"github.com/attunehq/attune/internal/model"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := &SQLStore{
		db:  db,
		cfg: config.StoreConfig{Driver: DriverSQLite},
	}
	return store, mock
}

func TestSaveUserModel(t *testing.T) {
	store, mock := newMockStore(t)

	m := model.DefaultModel("alice")
	m.LastUpdated = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO user_models").
		WithArgs("alice", m.LastUpdated, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SaveUserModel(context.Background(), m)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUserModel_RequiresUser(t *testing.T) {
	store, _ := newMockStore(t)

	err := store.SaveUserModel(context.Background(), &model.UserModel{})
	assert.Error(t, err)
}

func TestLoadUserModel(t *testing.T) {
	store, mock := newMockStore(t)

	content := `{"user_id":"alice","overall_confidence":0.42,"estimation":{"global_accuracy":0.9}}`
	rows := sqlmock.NewRows([]string{"content"}).AddRow(content)
	mock.ExpectQuery("SELECT content FROM user_models").
		WithArgs("alice").
		WillReturnRows(rows)

	m, err := store.LoadUserModel(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "alice", m.UserID)
	assert.InDelta(t, 0.42, m.OverallConfidence, 1e-9)
	assert.InDelta(t, 0.9, m.Estimation.GlobalAccuracy, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadUserModel_Missing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT content FROM user_models").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"content"}))

	m, err := store.LoadUserModel(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendEstimationRecord(t *testing.T) {
	store, mock := newMockStore(t)

	rec := &events.EstimationRecord{
		TaskID:           "t1",
		TaskType:         "coding",
		TaskSize:         "medium",
		EstimatedMinutes: 60,
		ActualMinutes:    90,
		Title:            "Fix login flow",
		CreatedAt:        time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO estimation_records").
		WithArgs(sqlmock.AnyArg(), "bob", "t1", "coding", "medium",
			60.0, 90.0, "Fix login flow", "", rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.AppendEstimationRecord(context.Background(), "bob", rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendEstimationRecord_Invalid(t *testing.T) {
	store, _ := newMockStore(t)

	err := store.AppendEstimationRecord(context.Background(), "bob", &events.EstimationRecord{
		TaskID: "t1",
		// missing task_type
	})
	assert.Error(t, err)
}

func TestEstimationRecords(t *testing.T) {
	store, mock := newMockStore(t)

	since := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"task_id", "task_type", "task_size", "estimated_minutes",
		"actual_minutes", "title", "project_id", "created_at",
	}).
		AddRow("t1", "coding", "small", 30.0, 45.0, "Refactor parser", "proj-1", created).
		AddRow("t2", "writing", "medium", 60.0, 50.0, nil, nil, created.Add(time.Hour))

	mock.ExpectQuery("FROM estimation_records").
		WithArgs("bob", since).
		WillReturnRows(rows)

	records, err := store.EstimationRecords(context.Background(), "bob", since)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "coding", records[0].TaskType)
	assert.Equal(t, "proj-1", records[0].ProjectID)
	// NULL title and project scan to empty strings.
	assert.Empty(t, records[1].Title)
	assert.Empty(t, records[1].ProjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKnownUsers(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"user_id"}).
		AddRow("alice").
		AddRow("bob")
	mock.ExpectQuery("SELECT user_id FROM user_models").
		WillReturnRows(rows)

	users, err := store.KnownUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingSameType(t *testing.T) {
	store, mock := newMockStore(t)

	since := time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id"}).
		AddRow("n1").
		AddRow("n2")
	mock.ExpectQuery("SELECT id FROM sent_notifications").
		WithArgs("alice", "reminder", StatusPending, since).
		WillReturnRows(rows)

	ids, err := store.PendingSameType(context.Background(), "alice", "reminder", since)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordNotification_Defaults(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO sent_notifications").
		WithArgs(sqlmock.AnyArg(), "alice", "reminder", "low", StatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n := &SentNotification{UserID: "alice", Type: "reminder", Priority: "low"}
	err := store.RecordNotification(context.Background(), n)
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, StatusPending, n.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuggestionAcceptance(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"suggestion_type", "accepted", "total"}).
		AddRow("break", 7, 10).
		AddRow("task_ordering", 1, 8)
	mock.ExpectQuery("FROM suggestion_history").
		WithArgs("alice").
		WillReturnRows(rows)

	stats, err := store.SuggestionAcceptance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, [2]int{7, 10}, stats["break"])
	assert.Equal(t, [2]int{1, 8}, stats["task_ordering"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	sqlite := &SQLStore{cfg: config.StoreConfig{Driver: DriverSQLite}}
	pg := &SQLStore{cfg: config.StoreConfig{Driver: DriverPostgres}}

	query := "SELECT id FROM t WHERE a = ? AND b = ?"
	assert.Equal(t, query, sqlite.rebind(query))
	assert.Equal(t, "SELECT id FROM t WHERE a = $1 AND b = $2", pg.rebind(query))
}

func TestTableNamespacing(t *testing.T) {
	plain := &SQLStore{cfg: config.StoreConfig{Driver: DriverSQLite, Schema: "attune"}}
	assert.Equal(t, "user_models", plain.table("user_models"))

	namespaced := &SQLStore{cfg: config.StoreConfig{Driver: DriverPostgres, Schema: "attune"}}
	assert.Equal(t, "attune.user_models", namespaced.table("user_models"))
}
