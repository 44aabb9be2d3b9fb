package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals the requested worker does not exist (or is not
	// visible to the caller).
	ErrNotFound = errors.New("worker: not found")
	// ErrAlreadyProcessed signals an approval decision on a worker that is
	// no longer pending.
	ErrAlreadyProcessed = errors.New("worker: approval already processed")
	// ErrValidation marks malformed input; wrap it with the field detail.
	ErrValidation = errors.New("worker: invalid input")
)

// Filters narrows public worker listings.
type Filters struct {
	Services []string
	Page     int
	PerPage  int
}

// Repository provides data access for worker profiles.
type Repository interface {
	GetByID(ctx context.Context, id string) (Worker, error)
	GetProfile(ctx context.Context, id string) (Profile, error)
	ListApproved(ctx context.Context, filters Filters) ([]Profile, int, error)
	GetApprovedDetail(ctx context.Context, id string) (Detail, error)
	UpdateLocation(ctx context.Context, id string, latitude, longitude float64) (Worker, error)
	ListApprovedWithCoordinates(ctx context.Context) ([]Profile, error)
	SampleApproved(ctx context.Context, limit int) ([]Profile, error)
	TopForMonth(ctx context.Context, from, to time.Time, limit int) ([]MonthlyTop, error)
	ListPending(ctx context.Context, pageNum, perPage int) ([]Profile, int, error)
	SetApproval(ctx context.Context, id string, status ApprovalStatus) (Worker, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const workerColumns = `id, name, email, phone, description, photo, latitude, longitude, approval_status::text, created_at`

const profileSQL = `
	SELECT w.id, w.name, w.email, w.phone, w.description, w.photo, w.latitude, w.longitude,
	       w.approval_status::text, w.created_at,
	       COALESCE(array_agg(s.service ORDER BY s.service) FILTER (WHERE s.service IS NOT NULL), '{}')
	FROM workers w
	LEFT JOIN services s ON s.worker_id = w.id
`

func (r *PGRepository) GetByID(ctx context.Context, id string) (Worker, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = $1`, id)
	w, err := scanWorker(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Worker{}, ErrNotFound
		}
		return Worker{}, fmt.Errorf("worker: get by id: %w", err)
	}
	return w, nil
}

func (r *PGRepository) GetProfile(ctx context.Context, id string) (Profile, error) {
	row := r.pool.QueryRow(ctx, profileSQL+` WHERE w.id = $1 GROUP BY w.id`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("worker: get profile: %w", err)
	}
	return p, nil
}

func (r *PGRepository) ListApproved(ctx context.Context, filters Filters) ([]Profile, int, error) {
	where := ` WHERE w.approval_status = 'approved'`
	args := []any{}
	if len(filters.Services) > 0 {
		where += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM services sf WHERE sf.worker_id = w.id AND sf.service = ANY($%d)
		)`, len(args)+1)
		args = append(args, filters.Services)
	}

	limit := filters.PerPage
	offset := (filters.Page - 1) * filters.PerPage

	query := fmt.Sprintf(`%s%s GROUP BY w.id ORDER BY w.created_at DESC LIMIT %d OFFSET %d`,
		profileSQL, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("worker: list approved: %w", err)
	}
	defer rows.Close()

	profiles, err := collectProfiles(rows)
	if err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM workers w` + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("worker: count approved: %w", err)
	}

	return profiles, total, nil
}

func (r *PGRepository) GetApprovedDetail(ctx context.Context, id string) (Detail, error) {
	row := r.pool.QueryRow(ctx, profileSQL+` WHERE w.id = $1 AND w.approval_status = 'approved' GROUP BY w.id`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, ErrNotFound
		}
		return Detail{}, fmt.Errorf("worker: get detail: %w", err)
	}

	const jobsSQL = `
		SELECT j.id, j.title, j.status::text, c.name, j.created_at
		FROM job_requests j
		JOIN customers c ON c.id = j.customer_id
		WHERE j.worker_id = $1
		  AND j.status IN ('accepted', 'in_progress', 'completed')
		ORDER BY j.created_at DESC
		LIMIT 10
	`
	rows, err := r.pool.Query(ctx, jobsSQL, id)
	if err != nil {
		return Detail{}, fmt.Errorf("worker: list recent jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]RecentJob, 0, 10)
	for rows.Next() {
		var j RecentJob
		if err := rows.Scan(&j.ID, &j.Title, &j.Status, &j.CustomerName, &j.CreatedAt); err != nil {
			return Detail{}, fmt.Errorf("worker: scan recent job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return Detail{}, fmt.Errorf("worker: iterate recent jobs: %w", err)
	}

	return Detail{Profile: p, RecentJobs: jobs}, nil
}

func (r *PGRepository) UpdateLocation(ctx context.Context, id string, latitude, longitude float64) (Worker, error) {
	const query = `
		UPDATE workers
		SET latitude = $2, longitude = $3
		WHERE id = $1
		RETURNING ` + workerColumns

	w, err := scanWorker(r.pool.QueryRow(ctx, query, id, latitude, longitude))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Worker{}, ErrNotFound
		}
		return Worker{}, fmt.Errorf("worker: update location: %w", err)
	}
	return w, nil
}

// ListApprovedWithCoordinates loads the distance-ranking candidate set.
// Workers without a reported location are excluded here rather than given an
// infinite distance.
func (r *PGRepository) ListApprovedWithCoordinates(ctx context.Context) ([]Profile, error) {
	query := profileSQL + `
		WHERE w.approval_status = 'approved'
		  AND w.latitude IS NOT NULL
		  AND w.longitude IS NOT NULL
		GROUP BY w.id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("worker: list with coordinates: %w", err)
	}
	defer rows.Close()

	return collectProfiles(rows)
}

// SampleApproved returns an arbitrary small set of approved workers, used as
// the fallback when distance ranking finds nothing.
func (r *PGRepository) SampleApproved(ctx context.Context, limit int) ([]Profile, error) {
	query := profileSQL + ` WHERE w.approval_status = 'approved' GROUP BY w.id ORDER BY w.created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("worker: sample approved: %w", err)
	}
	defer rows.Close()

	return collectProfiles(rows)
}

func (r *PGRepository) TopForMonth(ctx context.Context, from, to time.Time, limit int) ([]MonthlyTop, error) {
	query := `
		SELECT w.id, w.name, w.email, w.phone, w.description, w.photo, w.latitude, w.longitude,
		       w.approval_status::text, w.created_at,
		       COALESCE(array_agg(s.service ORDER BY s.service) FILTER (WHERE s.service IS NOT NULL), '{}'),
		       COUNT(j.id) FILTER (WHERE j.created_at >= $1 AND j.created_at < $2) AS monthly_jobs
		FROM workers w
		LEFT JOIN services s ON s.worker_id = w.id
		LEFT JOIN job_requests j ON j.worker_id = w.id
		WHERE w.approval_status = 'approved'
		GROUP BY w.id
		ORDER BY monthly_jobs DESC, w.created_at
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("worker: top for month: %w", err)
	}
	defer rows.Close()

	out := make([]MonthlyTop, 0, limit)
	for rows.Next() {
		var (
			m        MonthlyTop
			services []string
		)
		if err := rows.Scan(
			&m.ID, &m.Name, &m.Email, &m.Phone, &m.Description, &m.Photo,
			&m.Latitude, &m.Longitude, &m.ApprovalStatus, &m.CreatedAt,
			&services, &m.MonthlyJobs,
		); err != nil {
			return nil, fmt.Errorf("worker: scan monthly top: %w", err)
		}
		m.Services = services
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("worker: iterate monthly top: %w", err)
	}
	return out, nil
}

func (r *PGRepository) ListPending(ctx context.Context, pageNum, perPage int) ([]Profile, int, error) {
	query := fmt.Sprintf(`%s WHERE w.approval_status = 'pending' GROUP BY w.id ORDER BY w.created_at DESC LIMIT %d OFFSET %d`,
		profileSQL, perPage, (pageNum-1)*perPage)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("worker: list pending: %w", err)
	}
	defer rows.Close()

	profiles, err := collectProfiles(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM workers WHERE approval_status = 'pending'`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("worker: count pending: %w", err)
	}
	return profiles, total, nil
}

// SetApproval moves a pending worker to approved or rejected. The decision is
// one-way: a worker already decided is reported as ErrAlreadyProcessed.
func (r *PGRepository) SetApproval(ctx context.Context, id string, status ApprovalStatus) (Worker, error) {
	const query = `
		UPDATE workers
		SET approval_status = $2::worker_approval_status
		WHERE id = $1 AND approval_status = 'pending'
		RETURNING ` + workerColumns

	w, err := scanWorker(r.pool.QueryRow(ctx, query, id, status))
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Worker{}, fmt.Errorf("worker: set approval: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return Worker{}, fmt.Errorf("worker: check approval target: %w", err)
	}
	if exists {
		return Worker{}, ErrAlreadyProcessed
	}
	return Worker{}, ErrNotFound
}

func scanWorker(row pgx.Row) (Worker, error) {
	var w Worker
	err := row.Scan(
		&w.ID, &w.Name, &w.Email, &w.Phone, &w.Description, &w.Photo,
		&w.Latitude, &w.Longitude, &w.ApprovalStatus, &w.CreatedAt,
	)
	return w, err
}

func scanProfile(row pgx.Row) (Profile, error) {
	var (
		p        Profile
		services []string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.Description, &p.Photo,
		&p.Latitude, &p.Longitude, &p.ApprovalStatus, &p.CreatedAt,
		&services,
	)
	if err != nil {
		return Profile{}, err
	}
	p.Services = services
	return p, nil
}

func collectProfiles(rows pgx.Rows) ([]Profile, error) {
	profiles := make([]Profile, 0, 16)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("worker: scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("worker: iterate profiles: %w", err)
	}
	return profiles, nil
}
