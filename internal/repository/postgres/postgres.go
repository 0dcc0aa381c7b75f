package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
)

// Repository implements the persistence gateway on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure the gateway satisfies interfaces.
var (
	_ repository.Transactor = (*Repository)(nil)
	_ repository.Store      = (*txStore)(nil)
)

// Ping checks pool connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithinTx runs fn inside a read-committed transaction. Capacity counts lock
// their parent row, so concurrent writers on the same manager or team queue
// behind each other until commit.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore issues queries on a single transaction.
type txStore struct {
	tx pgx.Tx
}

// lockRow takes a row lock used to serialize count-then-write sequences.
func (s *txStore) lockRow(ctx context.Context, table, id string) error {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1 FOR UPDATE`, table)
	if _, err := s.tx.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("lock %s row: %w", table, err)
	}
	return nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return repository.ErrConflict
		case "23503":
			return repository.ErrNotFound
		case "23514", "22P02":
			return repository.ErrInvalidArgument
		}
	}
	return err
}

func mapReadError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

func expectAffected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nilIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func timePtrToNil(value *time.Time) any {
	if value == nil {
		return nil
	}
	return domain.DateOf(*value)
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	out := domain.DateOf(value.Time)
	return &out
}

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func activeStatusStrings() []string {
	return statusStrings(domain.NonTerminalStatuses)
}

// whereBuilder accumulates positional predicates.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *whereBuilder) page(page repository.Page) string {
	var out string
	if page.Limit > 0 {
		w.args = append(w.args, page.Limit)
		out += " LIMIT $" + strconv.Itoa(len(w.args))
	}
	if page.Offset > 0 {
		w.args = append(w.args, page.Offset)
		out += " OFFSET $" + strconv.Itoa(len(w.args))
	}
	return out
}
