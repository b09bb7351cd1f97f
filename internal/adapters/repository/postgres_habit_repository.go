package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var _ domain.HabitRepository = (*PostgresHabitRepository)(nil)

type PostgresHabitRepository struct {
	db *sqlx.DB
}

func NewPostgresHabitRepository(db *sqlx.DB) *PostgresHabitRepository {
	return &PostgresHabitRepository{db: db}
}

// pgTimestamp is one element of a TIMESTAMPTZ[] column as seen through
// pq.Array. Elements arrive in Postgres text form.
type pgTimestamp struct {
	time.Time
}

func (t pgTimestamp) Value() (driver.Value, error) {
	return t.UTC().Format(time.RFC3339Nano), nil
}

func (t *pgTimestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *pgTimestamp) parse(s string) error {
	parsed, err := pq.ParseTimestamp(time.UTC, s)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}

func toPGTimestamps(dates []time.Time) []pgTimestamp {
	out := make([]pgTimestamp, len(dates))
	for i, d := range dates {
		out[i] = pgTimestamp{Time: d}
	}
	return out
}

func fromPGTimestamps(ts []pgTimestamp) []time.Time {
	out := make([]time.Time, len(ts))
	for i, t := range ts {
		out[i] = t.Time
	}
	return out
}

// encodeCompletions renders dates as a Postgres array literal. Both directions
// go through text so the pgx and lib/pq drivers behave the same.
func encodeCompletions(dates []time.Time) (string, error) {
	v, err := pq.Array(toPGTimestamps(dates)).Value()
	if err != nil {
		return "", fmt.Errorf("failed to encode completion dates: %w", err)
	}
	switch lit := v.(type) {
	case string:
		return lit, nil
	case []byte:
		return string(lit), nil
	default:
		return "{}", nil
	}
}

const (
	habitColumns       = `id, user_id, name, description, frequency, completion_dates, created_at, updated_at`
	habitSelectColumns = `id, user_id, name, description, frequency, completion_dates::text, created_at, updated_at`
)

type scannable interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresHabitRepository) scanRow(row scannable) (*domain.Habit, error) {
	var h domain.Habit
	var completions []pgTimestamp

	err := row.Scan(
		&h.ID, &h.UserID, &h.Name, &h.Description, &h.Frequency,
		pq.Array(&completions), &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	h.CompletionDates = fromPGTimestamps(completions)
	h.CreatedAt = h.CreatedAt.UTC()
	h.UpdatedAt = h.UpdatedAt.UTC()
	return &h, nil
}

func (r *PostgresHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	completions, err := encodeCompletions(h.CompletionDates)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO habits (` + habitColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, query,
		h.ID, h.UserID, h.Name, h.Description, h.Frequency,
		completions, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	return nil
}

func (r *PostgresHabitRepository) GetByID(ctx context.Context, id, userID string) (*domain.Habit, error) {
	query := `SELECT ` + habitSelectColumns + ` FROM habits WHERE id = $1 AND user_id = $2`

	h, err := r.scanRow(r.db.QueryRowxContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return h, nil
}

func (r *PostgresHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	query := `
        SELECT ` + habitSelectColumns + ` FROM habits
        WHERE user_id = $1
        ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	habits := []*domain.Habit{}
	for rows.Next() {
		h, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return habits, nil
}

func (r *PostgresHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	query := `
        UPDATE habits SET
            name = $1, description = $2, frequency = $3, updated_at = $4
        WHERE id = $5 AND user_id = $6`

	res, err := r.db.ExecContext(ctx, query,
		h.Name, h.Description, h.Frequency, h.UpdatedAt,
		h.ID, h.UserID,
	)
	if err != nil {
		return fmt.Errorf("update query failed: %w", err)
	}

	return requireAffected(res)
}

// AddCompletion appends in a single UPDATE. A concurrent writer on the same
// row makes Postgres re-check the WHERE clause against the committed array,
// so two same-day completions cannot both land.
func (r *PostgresHabitRepository) AddCompletion(ctx context.Context, id, userID string, date time.Time, loc *time.Location) error {
	start, end := domain.CompletionDayBounds(date, loc)

	query := `
        UPDATE habits SET
            completion_dates = array_append(completion_dates, $1::timestamptz),
            updated_at = $2
        WHERE id = $3 AND user_id = $4
          AND NOT EXISTS (
              SELECT 1 FROM unnest(completion_dates) AS c
              WHERE c >= $5::timestamptz AND c < $6::timestamptz
          )`

	res, err := r.db.ExecContext(ctx, query,
		pgTimestamp{Time: date}, time.Now().UTC(),
		id, userID,
		pgTimestamp{Time: start}, pgTimestamp{Time: end},
	)
	if err != nil {
		return fmt.Errorf("add completion failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	err = r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM habits WHERE id = $1 AND user_id = $2)`, id, userID)
	if err != nil {
		return fmt.Errorf("habit lookup failed: %w", err)
	}
	if !exists {
		return domain.ErrHabitNotFound
	}
	return domain.ErrAlreadyCompleted
}

func (r *PostgresHabitRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}

	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}
