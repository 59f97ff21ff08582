package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkordes/tripboard/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// notifyChannel is the pg_notify channel raised by the trip_documents trigger
// (see the migration). The payload is the document id.
const notifyChannel = "trip_documents"

// PostgresStore stores each trip as one JSONB row and uses LISTEN/NOTIFY for
// the change feed, so writes from any client (including the snapshot job)
// reach every subscriber.
type PostgresStore struct {
	db db
	// pool is used to acquire dedicated LISTEN connections. Nil when the
	// store was built over a transaction; Subscribe then fails.
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a store over a connection pool.
// Use this in production; Subscribe needs the pool for LISTEN connections.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool, pool: pool}
}

// NewPostgresStoreTx constructs a store over a transaction for tests.
// Subscribe is unavailable on such a store.
func NewPostgresStoreTx(tx db) *PostgresStore {
	return &PostgresStore{db: tx}
}

// Get retrieves the document by trip id.
func (s *PostgresStore) Get(ctx context.Context, id string) (json.RawMessage, error) {
	const q = `SELECT doc FROM trip_documents WHERE id = @id`

	var doc []byte
	err := s.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo.PostgresStore.Get: %w", err)
	}
	return doc, nil
}

// Set creates or fully replaces the document. The trigger on trip_documents
// raises the change notification.
func (s *PostgresStore) Set(ctx context.Context, id string, doc json.RawMessage) error {
	const q = `
		INSERT INTO trip_documents (id, doc)
		VALUES (@id, @doc)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`

	if _, err := s.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "doc": doc}); err != nil {
		return fmt.Errorf("repo.PostgresStore.Set: %w", err)
	}
	return nil
}

// Delete removes the document by trip id.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM trip_documents WHERE id = @id`

	tag, err := s.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.PostgresStore.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.PostgresStore.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// Subscribe acquires a dedicated connection, LISTENs on the notify channel,
// and re-reads the document on every notification for this id. The initial
// state (document or nil) is delivered shortly after subscribing, matching
// the snapshot-first behavior clients expect from a live query.
func (s *PostgresStore) Subscribe(ctx context.Context, id string, fn func(json.RawMessage)) (func(), error) {
	if s.pool == nil {
		return nil, errors.New("repo.PostgresStore.Subscribe: store not backed by a pool")
	}

	subCtx, cancel := context.WithCancel(ctx)

	conn, err := s.pool.Acquire(subCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("repo.PostgresStore.Subscribe: acquire: %w", err)
	}
	if _, err := conn.Exec(subCtx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		cancel()
		return nil, fmt.Errorf("repo.PostgresStore.Subscribe: listen: %w", err)
	}

	go func() {
		defer conn.Release()

		s.deliver(subCtx, id, fn)

		for {
			n, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				// Context cancelled or connection broken; the subscription ends.
				return
			}
			if n.Payload != id {
				continue
			}
			s.deliver(subCtx, id, fn)
		}
	}()

	return cancel, nil
}

// deliver reads the current document state and hands it to fn.
// A missing document is delivered as nil; transient read errors are dropped,
// the next notification retries.
func (s *PostgresStore) deliver(ctx context.Context, id string, fn func(json.RawMessage)) {
	doc, err := s.Get(ctx, id)
	switch {
	case err == nil:
		fn(doc)
	case errors.Is(err, domain.ErrNotFound):
		fn(nil)
	}
}
