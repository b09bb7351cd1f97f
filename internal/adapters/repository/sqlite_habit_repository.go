package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/domain"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteTimeLayout is fixed width so TEXT ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func isSQLiteConstraint(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

var _ domain.HabitRepository = (*SQLiteHabitRepository)(nil)

// SQLiteHabitRepository keeps completions in their own table, one row per
// completion.
type SQLiteHabitRepository struct {
	db *sqlx.DB
}

func NewSQLiteHabitRepository(db *sqlx.DB) *SQLiteHabitRepository {
	return &SQLiteHabitRepository{db: db}
}

type sqliteHabitRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Frequency   string `db:"frequency"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func (row sqliteHabitRow) toDomain() (*domain.Habit, error) {
	createdAt, err := parseSQLiteTime(row.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseSQLiteTime(row.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &domain.Habit{
		ID:              row.ID,
		UserID:          row.UserID,
		Name:            row.Name,
		Description:     row.Description,
		Frequency:       row.Frequency,
		CompletionDates: []time.Time{},
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

type sqliteCompletionRow struct {
	HabitID     string `db:"habit_id"`
	CompletedAt string `db:"completed_at"`
}

func insertCompletions(ctx context.Context, tx *sqlx.Tx, habitID string, dates []time.Time) error {
	for _, d := range dates {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO habit_completions (habit_id, completed_at) VALUES (?, ?)`,
			habitID, formatSQLiteTime(d))
		if err != nil {
			return fmt.Errorf("failed to insert completion: %w", err)
		}
	}
	return nil
}

func (r *SQLiteHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO habits (id, user_id, name, description, frequency, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.Name, h.Description, h.Frequency,
		formatSQLiteTime(h.CreatedAt), formatSQLiteTime(h.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	if err := insertCompletions(ctx, tx, h.ID, h.CompletionDates); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteHabitRepository) GetByID(ctx context.Context, id, userID string) (*domain.Habit, error) {
	var row sqliteHabitRow
	err := r.db.GetContext(ctx, &row, `
        SELECT id, user_id, name, description, frequency, created_at, updated_at
        FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	h, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	var completions []string
	err = r.db.SelectContext(ctx, &completions, `
        SELECT completed_at FROM habit_completions
        WHERE habit_id = ? ORDER BY completed_at`, id)
	if err != nil {
		return nil, fmt.Errorf("completion query error: %w", err)
	}

	for _, c := range completions {
		t, err := parseSQLiteTime(c)
		if err != nil {
			return nil, err
		}
		h.CompletionDates = append(h.CompletionDates, t)
	}

	return h, nil
}

func (r *SQLiteHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	var rows []sqliteHabitRow
	err := r.db.SelectContext(ctx, &rows, `
        SELECT id, user_id, name, description, frequency, created_at, updated_at
        FROM habits WHERE user_id = ?
        ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	habits := make([]*domain.Habit, 0, len(rows))
	byID := make(map[string]*domain.Habit, len(rows))
	for _, row := range rows {
		h, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
		byID[h.ID] = h
	}

	if len(habits) == 0 {
		return habits, nil
	}

	var completions []sqliteCompletionRow
	err = r.db.SelectContext(ctx, &completions, `
        SELECT c.habit_id, c.completed_at
        FROM habit_completions c
        JOIN habits h ON h.id = c.habit_id
        WHERE h.user_id = ?
        ORDER BY c.completed_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("completion query error: %w", err)
	}

	for _, c := range completions {
		h, ok := byID[c.HabitID]
		if !ok {
			continue
		}
		t, err := parseSQLiteTime(c.CompletedAt)
		if err != nil {
			return nil, err
		}
		h.CompletionDates = append(h.CompletionDates, t)
	}

	return habits, nil
}

func (r *SQLiteHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE habits SET name = ?, description = ?, frequency = ?, updated_at = ?
        WHERE id = ? AND user_id = ?`,
		h.Name, h.Description, h.Frequency, formatSQLiteTime(h.UpdatedAt),
		h.ID, h.UserID,
	)
	if err != nil {
		return fmt.Errorf("update query failed: %w", err)
	}

	return requireAffected(res)
}

// AddCompletion inserts one completion row. The pool holds a single
// connection, so the same-day check and the insert run without another
// writer in between.
func (r *SQLiteHabitRepository) AddCompletion(ctx context.Context, id, userID string, date time.Time, loc *time.Location) error {
	start, end := domain.CompletionDayBounds(date, loc)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE habits SET updated_at = ? WHERE id = ? AND user_id = ?`,
		formatSQLiteTime(time.Now()), id, userID)
	if err != nil {
		return fmt.Errorf("update query failed: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	var sameDay int
	err = tx.GetContext(ctx, &sameDay, `
        SELECT COUNT(*) FROM habit_completions
        WHERE habit_id = ? AND completed_at >= ? AND completed_at < ?`,
		id, formatSQLiteTime(start), formatSQLiteTime(end))
	if err != nil {
		return fmt.Errorf("completion query error: %w", err)
	}
	if sameDay > 0 {
		return domain.ErrAlreadyCompleted
	}

	if err := insertCompletions(ctx, tx, id, []time.Time{date}); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteHabitRepository) Delete(ctx context.Context, id, userID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM habit_completions WHERE habit_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete completions: %w", err)
	}

	return tx.Commit()
}
