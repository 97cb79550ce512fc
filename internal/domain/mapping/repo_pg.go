package mapping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type mappingRepoPG struct{ pool *pgxpool.Pool }

// NewPostgresRepo stores mappings in the manual_mappings table.
func NewPostgresRepo(pool *pgxpool.Pool) Repository {
	return &mappingRepoPG{pool: pool}
}

const mappingCols = `id, namaste_code, namaste_display, icd11_code, icd11_display,
	confidence, status, created_by, created_at, notes, reviewer_notes,
	validated_by, validated_at`

func scanMapping(row pgx.Row) (*Mapping, error) {
	var m Mapping
	var status string
	err := row.Scan(&m.ID, &m.NamasteCode, &m.NamasteDisplay, &m.ICD11Code, &m.ICD11Display,
		&m.Confidence, &status, &m.CreatedBy, &m.CreatedAt, &m.Notes, &m.ReviewerNotes,
		&m.ValidatedBy, &m.ValidatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Status = Status(status)
	return &m, nil
}

func (r *mappingRepoPG) Create(ctx context.Context, m *Mapping) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO manual_mappings (id, namaste_code, namaste_display, icd11_code, icd11_display,
			confidence, status, created_by, created_at, notes, reviewer_notes, validated_by, validated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		m.ID, m.NamasteCode, m.NamasteDisplay, m.ICD11Code, m.ICD11Display,
		m.Confidence, string(m.Status), m.CreatedBy, m.CreatedAt, m.Notes, m.ReviewerNotes,
		m.ValidatedBy, m.ValidatedAt)
	return err
}

func (r *mappingRepoPG) Get(ctx context.Context, id string) (*Mapping, error) {
	return r.get(ctx, r.pool, id, false)
}

func (r *mappingRepoPG) get(ctx context.Context, q queryable, id string, lock bool) (*Mapping, error) {
	sql := `SELECT ` + mappingCols + ` FROM manual_mappings WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	return scanMapping(q.QueryRow(ctx, sql, id))
}

func (r *mappingRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Mapping, int, error) {
	where, args := f.sql()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM manual_mappings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + mappingCols + ` FROM manual_mappings` + where + ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *mappingRepoPG) Update(ctx context.Context, id string, fn func(*Mapping) error) (*Mapping, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	m, err := r.get(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if err := fn(m); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE manual_mappings SET icd11_code=$2, icd11_display=$3, confidence=$4, status=$5,
			notes=$6, reviewer_notes=$7, validated_by=$8, validated_at=$9
		WHERE id = $1`,
		m.ID, m.ICD11Code, m.ICD11Display, m.Confidence, string(m.Status),
		m.Notes, m.ReviewerNotes, m.ValidatedBy, m.ValidatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (f Filter) sql() (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if f.Status != "" {
		args = append(args, string(f.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.NamasteCode != "" {
		args = append(args, f.NamasteCode)
		clauses = append(clauses, fmt.Sprintf("namaste_code = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
