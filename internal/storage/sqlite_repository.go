package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteTimeLayout is fixed width so text comparison in SQL matches time order.
const (
	sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
	sqliteDateLayout = "2006-01-02"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// OpenSQLite opens path in WAL mode with a single connection, so the
// foreign key pragma holds for every statement.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

const eventColumns = `
	e.id, e.title, e.description, e.location, e.start_at, e.end_at, e.is_recurring, e.created_at, e.updated_at,
	r.id, r.frequency, r.interval_value, r.end_date, r.weekdays, r.weekday, r.ordinal, r.created_at`

const eventFrom = ` FROM events e LEFT JOIN recurrence_rules r ON r.event_id = e.id`

func (r *SQLiteRepository) CreateEvent(ctx context.Context, in Event) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (id, title, description, location, start_at, end_at, is_recurring, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.ID, in.Title, in.Description, in.Location, mustTime(in.StartAt), mustTime(in.EndAt),
			boolInt(in.IsRecurring), mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return insertRule(ctx, tx, in.ID, in.Rule)
	})
}

func (r *SQLiteRepository) GetEvent(ctx context.Context, id string) (Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+eventColumns+eventFrom+` WHERE e.id = ?`, id)
	item, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		return Event{}, err
	}
	return item, nil
}

// UpdateEvent rewrites the event row and replaces its rule. A nil Rule
// removes any stored rule.
func (r *SQLiteRepository) UpdateEvent(ctx context.Context, in Event) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE events
			SET title = ?, description = ?, location = ?, start_at = ?, end_at = ?, is_recurring = ?, updated_at = ?
			WHERE id = ?`,
			in.Title, in.Description, in.Location, mustTime(in.StartAt), mustTime(in.EndAt),
			boolInt(in.IsRecurring), mustTime(in.UpdatedAt), in.ID,
		)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		if err := checkRowsAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE event_id = ?`, in.ID); err != nil {
			return fmt.Errorf("clear rule: %w", err)
		}
		return insertRule(ctx, tx, in.ID, in.Rule)
	})
}

func (r *SQLiteRepository) DeleteEvent(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE event_id = ?`, id); err != nil {
			return fmt.Errorf("delete rule: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		return checkRowsAffected(res)
	})
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, filter EventListFilter) ([]Event, error) {
	where, args := filterClause(filter)
	query := `SELECT` + eventColumns + eventFrom + where + ` ORDER BY e.start_at ASC, e.id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		item, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountEvents(ctx context.Context, filter EventListFilter) (int, error) {
	where, args := filterClause(filter)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events e`+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func filterClause(filter EventListFilter) (string, []any) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if filter.Recurring != nil {
		clauses = append(clauses, "e.is_recurring = ?")
		args = append(args, boolInt(*filter.Recurring))
	}
	if filter.StartFrom != nil {
		clauses = append(clauses, "e.start_at >= ?")
		args = append(args, mustTime(*filter.StartFrom))
	}
	if filter.StartBefore != nil {
		clauses = append(clauses, "e.start_at < ?")
		args = append(args, mustTime(*filter.StartBefore))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func insertRule(ctx context.Context, tx *sql.Tx, eventID string, rule *RecurrenceRule) error {
	if rule == nil {
		return nil
	}
	var ordinal any
	if rule.Ordinal != nil {
		ordinal = *rule.Ordinal
	}
	var weekday any
	if rule.Weekday != "" {
		weekday = rule.Weekday
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recurrence_rules (id, event_id, frequency, interval_value, end_date, weekdays, weekday, ordinal, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, eventID, rule.Frequency, rule.IntervalValue, nullDate(rule.EndDate),
		strings.Join(rule.Weekdays, ","), weekday, ordinal, mustTime(rule.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func nullDate(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.Format(sqliteDateLayout)
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func parseNullableDate(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	d, err := time.Parse(sqliteDateLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (Event, error) {
	var out Event
	var start, end, created, updated string
	var recurring int
	var (
		ruleID      sql.NullString
		frequency   sql.NullString
		interval    sql.NullInt64
		endDate     sql.NullString
		weekdays    sql.NullString
		weekday     sql.NullString
		ordinal     sql.NullInt64
		ruleCreated sql.NullString
	)
	if err := s.Scan(
		&out.ID, &out.Title, &out.Description, &out.Location, &start, &end, &recurring, &created, &updated,
		&ruleID, &frequency, &interval, &endDate, &weekdays, &weekday, &ordinal, &ruleCreated,
	); err != nil {
		return Event{}, err
	}
	var err error
	if out.StartAt, err = parseRequiredTime(start); err != nil {
		return Event{}, err
	}
	if out.EndAt, err = parseRequiredTime(end); err != nil {
		return Event{}, err
	}
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return Event{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return Event{}, err
	}
	out.IsRecurring = recurring == 1
	if !ruleID.Valid {
		return out, nil
	}

	rule := &RecurrenceRule{
		ID:            ruleID.String,
		EventID:       out.ID,
		Frequency:     frequency.String,
		IntervalValue: int(interval.Int64),
		Weekday:       weekday.String,
	}
	if weekdays.String != "" {
		rule.Weekdays = strings.Split(weekdays.String, ",")
	}
	if ordinal.Valid {
		v := int(ordinal.Int64)
		rule.Ordinal = &v
	}
	if rule.EndDate, err = parseNullableDate(endDate); err != nil {
		return Event{}, err
	}
	if rule.CreatedAt, err = parseRequiredTime(ruleCreated.String); err != nil {
		return Event{}, err
	}
	out.Rule = rule
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
