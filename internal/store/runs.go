package store

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
)

// RunStore handles run-history storage using DuckDB.
type RunStore struct {
	db *sql.DB
}

func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Save appends one completed run. Records are never updated: every
// verdict reflects exactly one observed run.
func (s *RunStore) Save(ctx context.Context, rec *models.RunRecord) error {
	_, err := s.db.ExecContext(ctx, queryInsertRun,
		rec.ID.String(),
		rec.Scenario,
		string(rec.Verdict),
		rec.ExitCode,
		rec.TimedOut,
		rec.ElapsedMs,
		rec.StderrExcerpt,
	)
	return err
}

func (s *RunStore) List(ctx context.Context, opts ...ListOption) ([]models.RunRecord, error) {
	builder := sq.Select(
		"id", "scenario", "verdict", "exit_code", "timed_out",
		"elapsed_ms", "stderr_excerpt", "created_at",
	).From("runs").OrderBy("created_at DESC")

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.RunRecord
	for rows.Next() {
		var (
			rec       models.RunRecord
			id        string
			verdict   string
			createdAt time.Time
		)
		err := rows.Scan(
			&id,
			&rec.Scenario,
			&verdict,
			&rec.ExitCode,
			&rec.TimedOut,
			&rec.ElapsedMs,
			&rec.StderrExcerpt,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		rec.ID = parsed
		rec.Verdict = models.Verdict(verdict)
		rec.CreatedAt = createdAt
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountByVerdict reports how many stored runs ended in each verdict.
func (s *RunStore) CountByVerdict(ctx context.Context) (map[models.Verdict]int, error) {
	rows, err := s.db.QueryContext(ctx, queryCountByVerdict)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Verdict]int)
	for rows.Next() {
		var (
			verdict string
			count   int
		)
		if err := rows.Scan(&verdict, &count); err != nil {
			return nil, err
		}
		counts[models.Verdict(verdict)] = count
	}
	return counts, rows.Err()
}

type ListOption func(sq.SelectBuilder) sq.SelectBuilder

func ByScenario(scenarios ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(scenarios) == 0 {
			return b
		}
		return b.Where(sq.Eq{"scenario": scenarios})
	}
}

func ByVerdict(verdicts ...models.Verdict) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(verdicts) == 0 {
			return b
		}
		vals := make([]string, 0, len(verdicts))
		for _, v := range verdicts {
			vals = append(vals, string(v))
		}
		return b.Where(sq.Eq{"verdict": vals})
	}
}

func WithLimit(n uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(n)
	}
}
