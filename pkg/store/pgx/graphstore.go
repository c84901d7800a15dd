package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meridian-kg/backend/pkg/common"
	"github.com/meridian-kg/backend/pkg/store"

	"github.com/google/uuid"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStore implements store.GraphStore on PostgreSQL.
type GraphDBStore struct {
	conn pgxIConn
}

// NewGraphDBStore creates a graph store using an existing connection or pool.
func NewGraphDBStore(conn pgxIConn) *GraphDBStore {
	return &GraphDBStore{conn: conn}
}

func (s *GraphDBStore) CreateGraph(ctx context.Context, id uuid.UUID, userID, query string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO knowledge_graphs (uuid, user_id, query, title, status)
		VALUES ($1, $2, $3, '', $4)
	`, id, userID, query, store.Started().Encode())
	if err != nil {
		return fmt.Errorf("failed to create graph: %w", err)
	}
	return nil
}

// SetState advances the stored status. The current row is locked so
// concurrent writers serialize, transitions that would move the run
// backwards return store.ErrStaleTransition.
func (s *GraphDBStore) SetState(ctx context.Context, id uuid.UUID, state store.GraphState) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var rawStatus string
	err = tx.QueryRow(ctx, `
		SELECT status FROM knowledge_graphs WHERE uuid = $1 FOR UPDATE
	`, id).Scan(&rawStatus)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	current, err := store.ParseState(rawStatus)
	if err != nil {
		return err
	}
	if !current.CanTransition(state) {
		return store.ErrStaleTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE knowledge_graphs SET status = $2, updated_at = now() WHERE uuid = $1
	`, id, state.Encode())
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	return tx.Commit(ctx)
}

// SetTitle records the display title chosen during planning. Rows in a
// terminal state are immutable, writing to one returns
// store.ErrStaleTransition.
func (s *GraphDBStore) SetTitle(ctx context.Context, id uuid.UUID, title string) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var rawStatus string
	err = tx.QueryRow(ctx, `
		SELECT status FROM knowledge_graphs WHERE uuid = $1 FOR UPDATE
	`, id).Scan(&rawStatus)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	current, err := store.ParseState(rawStatus)
	if err != nil {
		return err
	}
	if current.Terminal() {
		return store.ErrStaleTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE knowledge_graphs SET title = $2, updated_at = now() WHERE uuid = $1
	`, id, title)
	if err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *GraphDBStore) SetResult(ctx context.Context, id uuid.UUID, graph *common.Graph) error {
	payload, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	tag, err := s.conn.Exec(ctx, `
		UPDATE knowledge_graphs SET payload = $2, updated_at = now() WHERE uuid = $1
	`, id, payload)
	if err != nil {
		return fmt.Errorf("failed to set result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *GraphDBStore) GetGraph(ctx context.Context, id uuid.UUID) (*store.GraphRecord, error) {
	var (
		record  store.GraphRecord
		payload []byte
	)
	err := s.conn.QueryRow(ctx, `
		SELECT uuid, user_id, query, title, status, payload, created_at, updated_at
		FROM knowledge_graphs WHERE uuid = $1
	`, id).Scan(
		&record.UUID, &record.UserID, &record.Query, &record.Title,
		&record.Status, &payload, &record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get graph: %w", err)
	}

	if len(payload) > 0 {
		var graph common.Graph
		if err := json.Unmarshal(payload, &graph); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		record.Payload = &graph
	}
	return &record, nil
}

func (s *GraphDBStore) GetState(ctx context.Context, id uuid.UUID) (store.GraphState, error) {
	var rawStatus string
	err := s.conn.QueryRow(ctx, `
		SELECT status FROM knowledge_graphs WHERE uuid = $1
	`, id).Scan(&rawStatus)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.GraphState{}, store.ErrNotFound
	}
	if err != nil {
		return store.GraphState{}, fmt.Errorf("failed to get status: %w", err)
	}
	return store.ParseState(rawStatus)
}

// ListGraphs returns the user's runs newest first. Payloads are not
// loaded, fetch a single graph for the full result.
func (s *GraphDBStore) ListGraphs(ctx context.Context, userID string) ([]store.GraphRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT uuid, user_id, query, title, status, created_at, updated_at
		FROM knowledge_graphs WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	defer rows.Close()

	var records []store.GraphRecord
	for rows.Next() {
		var record store.GraphRecord
		if err := rows.Scan(
			&record.UUID, &record.UserID, &record.Query, &record.Title,
			&record.Status, &record.CreatedAt, &record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan graph row: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *GraphDBStore) DeleteGraph(ctx context.Context, id uuid.UUID) error {
	tag, err := s.conn.Exec(ctx, `
		DELETE FROM knowledge_graphs WHERE uuid = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete graph: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
