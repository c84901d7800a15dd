package pgx

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/meridian-kg/backend/pkg/store"

	"github.com/google/uuid"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

// statusRow scans a stored status string into the first destination.
func statusRow(status string) fakeRow {
	return fakeRow{scan: func(dest ...any) error {
		*dest[0].(*string) = status
		return nil
	}}
}

func missingRow() fakeRow {
	return fakeRow{scan: func(dest ...any) error { return pgxv5.ErrNoRows }}
}

// fakeTx records the statements run inside a transaction. Unimplemented
// pgx.Tx methods panic when reached.
type fakeTx struct {
	pgxv5.Tx

	row        fakeRow
	execSQL    []string
	execArgs   [][]any
	committed  bool
	rolledBack bool
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgxv5.Row {
	return t.row
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execSQL = append(t.execSQL, sql)
	t.execArgs = append(t.execArgs, args)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

type emptyRows struct {
	pgxv5.Rows
}

func (emptyRows) Next() bool { return false }
func (emptyRows) Err() error { return nil }
func (emptyRows) Close()     {}

type fakeConn struct {
	tx        *fakeTx
	row       fakeRow
	queryRows pgxv5.Rows
	querySQL  string
	queryArgs []any
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected Exec")
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgxv5.Rows, error) {
	c.querySQL = sql
	c.queryArgs = args
	return c.queryRows, nil
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pgxv5.Row {
	return c.row
}

func (c *fakeConn) Begin(ctx context.Context) (pgxv5.Tx, error) {
	return c.tx, nil
}

func TestSetTitle_UpdatesActiveGraph(t *testing.T) {
	tx := &fakeTx{row: statusRow(store.Started().Encode())}
	graphs := NewGraphDBStore(&fakeConn{tx: tx})

	if err := graphs.SetTitle(context.Background(), uuid.New(), "Solar Power"); err != nil {
		t.Fatalf("SetTitle() error = %v", err)
	}
	if !tx.committed {
		t.Fatal("expected transaction commit")
	}
	if len(tx.execSQL) != 1 || !strings.Contains(tx.execSQL[0], "SET title") {
		t.Fatalf("exec = %v, want one title update", tx.execSQL)
	}
	if got := tx.execArgs[0][1]; got != "Solar Power" {
		t.Fatalf("title arg = %v, want Solar Power", got)
	}
}

func TestSetTitle_TerminalGraphUnchanged(t *testing.T) {
	for _, status := range []string{
		store.Done().Encode(),
		store.Failed("planning: timeout").Encode(),
	} {
		tx := &fakeTx{row: statusRow(status)}
		graphs := NewGraphDBStore(&fakeConn{tx: tx})

		err := graphs.SetTitle(context.Background(), uuid.New(), "Rewritten")
		if !errors.Is(err, store.ErrStaleTransition) {
			t.Fatalf("SetTitle() on %q error = %v, want ErrStaleTransition", status, err)
		}
		if len(tx.execSQL) != 0 {
			t.Fatalf("exec = %v, want no writes on terminal row", tx.execSQL)
		}
		if tx.committed {
			t.Fatal("expected no commit on terminal row")
		}
	}
}

func TestSetTitle_MissingGraph(t *testing.T) {
	tx := &fakeTx{row: missingRow()}
	graphs := NewGraphDBStore(&fakeConn{tx: tx})

	err := graphs.SetTitle(context.Background(), uuid.New(), "Anything")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("SetTitle() error = %v, want ErrNotFound", err)
	}
}

func TestSetState_TerminalGraphUnchanged(t *testing.T) {
	tx := &fakeTx{row: statusRow(store.Failed("planning: timeout").Encode())}
	graphs := NewGraphDBStore(&fakeConn{tx: tx})

	err := graphs.SetState(context.Background(), uuid.New(), store.TopicsFound([]string{"A"}))
	if !errors.Is(err, store.ErrStaleTransition) {
		t.Fatalf("SetState() error = %v, want ErrStaleTransition", err)
	}
	if len(tx.execSQL) != 0 {
		t.Fatalf("exec = %v, want no writes on terminal row", tx.execSQL)
	}
}
