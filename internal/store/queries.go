package store

// Run history queries
const (
	queryInsertRun = `
		INSERT INTO runs (id, scenario, verdict, exit_code, timed_out, elapsed_ms, stderr_excerpt, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, now())`

	queryCountByVerdict = `
		SELECT verdict, COUNT(*)
		FROM runs
		GROUP BY verdict`
)
