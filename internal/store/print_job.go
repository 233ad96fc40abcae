package store

import (
	"database/sql"
	"errors"
	"time"
)

// JobStatus is the outcome of a print job.
type JobStatus string

const (
	// JobStatusSuccess means the slip reached the printer.
	JobStatusSuccess JobStatus = "success"
	// JobStatusError means the job failed before or while printing.
	JobStatusError JobStatus = "error"
)

// PrintJob represents one print request stored in the database.
type PrintJob struct {
	ID             string
	Name           string
	WatchSeconds   int
	WatchedPercent float64
	Grade          string
	Subtotal       int64
	Status         JobStatus
	Message        string
	Duration       time.Duration
	CreatedAt      time.Time
}

// PrintJobRepository provides access to recorded print jobs.
type PrintJobRepository struct {
	db *sql.DB
}

// PrintJobs returns the print job repository for this store.
func (s *Store) PrintJobs() *PrintJobRepository {
	return &PrintJobRepository{db: s.db}
}

// Create inserts a new print job into the database.
func (r *PrintJobRepository) Create(j *PrintJob) error {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO print_jobs (id, name, watch_seconds, watched_percent, grade, subtotal, status, message, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Name, j.WatchSeconds, j.WatchedPercent, j.Grade, j.Subtotal,
		string(j.Status), j.Message, j.Duration.Milliseconds(), j.CreatedAt,
	)
	return err
}

// GetByID retrieves a print job by its ID.
func (r *PrintJobRepository) GetByID(id string) (*PrintJob, error) {
	row := r.db.QueryRow(
		`SELECT id, name, watch_seconds, watched_percent, grade, subtotal, status, message, duration_ms, created_at
		 FROM print_jobs WHERE id = ?`,
		id,
	)

	j, err := scanPrintJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return j, nil
}

// List retrieves the most recent print jobs, newest first.
// A non-positive limit returns every job.
func (r *PrintJobRepository) List(limit int) ([]*PrintJob, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, name, watch_seconds, watched_percent, grade, subtotal, status, message, duration_ms, created_at
		 FROM print_jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*PrintJob
	for rows.Next() {
		j, err := scanPrintJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

// CountByStatus returns how many jobs finished with each status.
func (r *PrintJobRepository) CountByStatus() (map[JobStatus]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM print_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[JobStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[JobStatus(status)] = n
	}

	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrintJob(row rowScanner) (*PrintJob, error) {
	j := &PrintJob{}
	var status string
	var durationMS int64

	err := row.Scan(&j.ID, &j.Name, &j.WatchSeconds, &j.WatchedPercent, &j.Grade,
		&j.Subtotal, &status, &j.Message, &durationMS, &j.CreatedAt)
	if err != nil {
		return nil, err
	}

	j.Status = JobStatus(status)
	j.Duration = time.Duration(durationMS) * time.Millisecond
	return j, nil
}
