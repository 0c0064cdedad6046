package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fcl-miniapp/internal/domain"
)

// RegistrationRepo is the append-only Postgres ledger of committed registrations.
type RegistrationRepo struct {
	db *sql.DB
}

func NewRegistrationRepo(db *sql.DB) *RegistrationRepo {
	return &RegistrationRepo{db: db}
}

// storedPayload mirrors the document that was validated at commit time.
type storedPayload struct {
	Discipline domain.Discipline `json:"discipline"`
	Mode       domain.Mode       `json:"mode"`
	Data       map[string]any    `json:"data"`
}

// Append inserts reg and returns the assigned id.
func (r *RegistrationRepo) Append(ctx context.Context, reg *domain.Registration) (int64, error) {
	data := reg.Data
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(storedPayload{Discipline: reg.Discipline, Mode: reg.Mode, Data: data})
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}
	var source sql.NullString
	if reg.SourceInitData != "" {
		source = sql.NullString{String: reg.SourceInitData, Valid: true}
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO registrations
			(tg_user_id, tg_username, tg_first_name, tg_last_name, discipline, mode, payload, created_at, submitted_at, source_init_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		reg.UserID, reg.Username, reg.FirstName, reg.LastName,
		reg.Discipline.String(), reg.Mode.String(), string(payload),
		reg.CreatedAt, reg.SubmittedAt, source,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert registration: %w", err)
	}
	return id, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *RegistrationRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db)
}

func (r *RegistrationRepo) CountDistinctUsers(ctx context.Context) (int, error) {
	return countDistinctUsers(ctx, r.db)
}

// GroupCount returns per-key counts, highest first.
func (r *RegistrationRepo) GroupCount(ctx context.Context, by domain.GroupBy) ([]domain.GroupCount, error) {
	return groupCount(ctx, r.db, by)
}

// Recent returns the latest submissions, newest first.
func (r *RegistrationRepo) Recent(ctx context.Context, limit int) ([]domain.RegistrationSummary, error) {
	return recent(ctx, r.db, limit)
}

// Snapshot reads every aggregate inside one read-only REPEATABLE READ
// transaction, so the totals and groupings describe the same ledger state.
func (r *RegistrationRepo) Snapshot(ctx context.Context, recentLimit int) (*domain.StatsSnapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var snap domain.StatsSnapshot
	if snap.Total, err = count(ctx, tx); err != nil {
		return nil, err
	}
	if snap.DistinctUsers, err = countDistinctUsers(ctx, tx); err != nil {
		return nil, err
	}
	if snap.ByDiscipline, err = groupCount(ctx, tx, domain.GroupByDiscipline); err != nil {
		return nil, err
	}
	if snap.ByMode, err = groupCount(ctx, tx, domain.GroupByMode); err != nil {
		return nil, err
	}
	if snap.Recent, err = recent(ctx, tx, recentLimit); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return &snap, nil
}

func count(ctx context.Context, q querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func countDistinctUsers(ctx context.Context, q querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(DISTINCT tg_user_id) FROM registrations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count distinct users: %w", err)
	}
	return n, nil
}

// groupColumn maps the closed GroupBy set to a column name; nothing from the
// request reaches the query text.
func groupColumn(by domain.GroupBy) string {
	switch by {
	case domain.GroupByMode:
		return "mode"
	default:
		return "discipline"
	}
}

func groupCount(ctx context.Context, q querier, by domain.GroupBy) ([]domain.GroupCount, error) {
	col := groupColumn(by)
	rows, err := q.QueryContext(ctx, fmt.Sprintf(
		`SELECT %[1]s, COUNT(*) AS n FROM registrations GROUP BY %[1]s ORDER BY n DESC, %[1]s ASC`, col))
	if err != nil {
		return nil, fmt.Errorf("group by %s: %w", col, err)
	}
	defer rows.Close()

	out := []domain.GroupCount{}
	for rows.Next() {
		var gc domain.GroupCount
		if err := rows.Scan(&gc.Key, &gc.Count); err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}
		out = append(out, gc)
	}
	return out, rows.Err()
}

func recent(ctx context.Context, q querier, limit int) ([]domain.RegistrationSummary, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, tg_user_id, tg_username, discipline, mode, submitted_at
		FROM registrations
		ORDER BY submitted_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent registrations: %w", err)
	}
	defer rows.Close()

	out := []domain.RegistrationSummary{}
	for rows.Next() {
		var s domain.RegistrationSummary
		var username sql.NullString
		if err := rows.Scan(&s.ID, &s.UserID, &username, &s.Discipline, &s.Mode, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan recent row: %w", err)
		}
		if username.Valid {
			s.Username = &username.String
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
