package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no job request (or application) row exists
	// for the provided identifier.
	ErrNotFound = errors.New("job: not found")
	// ErrInvalidState signals a lifecycle guard rejected the transition; the
	// row exists but is not in a state the operation accepts.
	ErrInvalidState = errors.New("job: invalid state for operation")
	// ErrAlreadyApplied is returned when a worker applies twice to one request.
	ErrAlreadyApplied = errors.New("job: already applied")
	// ErrForbidden is returned when the actor does not own the resource.
	ErrForbidden = errors.New("job: forbidden")
	// ErrValidation marks malformed input; wrap it with the field detail.
	ErrValidation = errors.New("job: invalid input")
)

// Filters narrows job listings.
type Filters struct {
	Page    int
	PerPage int
}

type Repository interface {
	Insert(ctx context.Context, tx pgx.Tx, jr JobRequest) (JobRequest, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (JobRequest, error)
	DeletePending(ctx context.Context, tx pgx.Tx, id string) error
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status, completedAt *time.Time, finalPriceCents *int64) (JobRequest, error)
	AssignWorker(ctx context.Context, tx pgx.Tx, id, workerID string, finalPriceCents *int64) (JobRequest, error)
	SetRating(ctx context.Context, tx pgx.Tx, id string, rating int, ratedAt time.Time) (JobRequest, error)

	InsertApplication(ctx context.Context, tx pgx.Tx, app WorkerApplication) (WorkerApplication, error)
	GetApplication(ctx context.Context, tx pgx.Tx, id string) (WorkerApplication, error)
	AcceptApplicationRow(ctx context.Context, tx pgx.Tx, id string) (WorkerApplication, error)
	RejectPendingSiblings(ctx context.Context, tx pgx.Tx, jobRequestID, exceptID string) error

	Get(ctx context.Context, id string) (Detail, error)
	ListForCustomer(ctx context.Context, customerID string, filters Filters) ([]Detail, int, error)
	ListAvailable(ctx context.Context, workerID string, filters Filters) ([]JobRequest, int, error)
	ListMine(ctx context.Context, workerID string, filters Filters) ([]JobRequest, int, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const jobColumns = `id, customer_id, worker_id, title, description, budget_cents,
	final_price_cents, discount_percent, discounted_price_cents, status,
	scheduled_at, completed_at, rating, rated_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (JobRequest, error) {
	var jr JobRequest
	err := row.Scan(
		&jr.ID, &jr.CustomerID, &jr.WorkerID, &jr.Title, &jr.Description,
		&jr.BudgetCents, &jr.FinalPriceCents, &jr.DiscountPercent,
		&jr.DiscountedPriceCents, &jr.Status, &jr.ScheduledAt, &jr.CompletedAt,
		&jr.Rating, &jr.RatedAt, &jr.CreatedAt, &jr.UpdatedAt,
	)
	return jr, err
}

func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, jr JobRequest) (JobRequest, error) {
	const insertSQL = `
		INSERT INTO job_requests (id, customer_id, worker_id, title, description, budget_cents, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + jobColumns

	created, err := scanJob(tx.QueryRow(ctx, insertSQL,
		jr.ID, jr.CustomerID, jr.WorkerID, jr.Title, jr.Description, jr.BudgetCents, jr.ScheduledAt))
	if err != nil {
		return JobRequest{}, fmt.Errorf("job: insert request: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (JobRequest, error) {
	jr, err := scanJob(tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM job_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobRequest{}, ErrNotFound
		}
		return JobRequest{}, fmt.Errorf("job: get for update: %w", err)
	}
	return jr, nil
}

// DeletePending removes a pending, unassigned request. The WHERE guard
// re-checks the state under the caller's row lock; applications cascade.
func (r *PGRepository) DeletePending(ctx context.Context, tx pgx.Tx, id string) error {
	const deleteSQL = `
		DELETE FROM job_requests
		WHERE id = $1 AND status = 'pending' AND worker_id IS NULL`

	tag, err := tx.Exec(ctx, deleteSQL, id)
	if err != nil {
		return fmt.Errorf("job: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status, completedAt *time.Time, finalPriceCents *int64) (JobRequest, error) {
	const updateSQL = `
		UPDATE job_requests
		SET status = $2,
		    completed_at = COALESCE($3, completed_at),
		    final_price_cents = COALESCE($4, final_price_cents),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + jobColumns

	jr, err := scanJob(tx.QueryRow(ctx, updateSQL, id, status, completedAt, finalPriceCents))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobRequest{}, ErrNotFound
		}
		return JobRequest{}, fmt.Errorf("job: update status: %w", err)
	}
	return jr, nil
}

// AssignWorker is the acceptance CAS: it only succeeds while the request is
// still pending and unassigned, so concurrent acceptances resolve to a single
// winner.
func (r *PGRepository) AssignWorker(ctx context.Context, tx pgx.Tx, id, workerID string, finalPriceCents *int64) (JobRequest, error) {
	const assignSQL = `
		UPDATE job_requests
		SET worker_id = $2,
		    status = 'accepted',
		    final_price_cents = COALESCE($3, final_price_cents),
		    updated_at = now()
		WHERE id = $1 AND status = 'pending' AND worker_id IS NULL
		RETURNING ` + jobColumns

	jr, err := scanJob(tx.QueryRow(ctx, assignSQL, id, workerID, finalPriceCents))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobRequest{}, ErrInvalidState
		}
		return JobRequest{}, fmt.Errorf("job: assign worker: %w", err)
	}
	return jr, nil
}

func (r *PGRepository) SetRating(ctx context.Context, tx pgx.Tx, id string, rating int, ratedAt time.Time) (JobRequest, error) {
	const rateSQL = `
		UPDATE job_requests
		SET rating = $2, rated_at = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + jobColumns

	jr, err := scanJob(tx.QueryRow(ctx, rateSQL, id, rating, ratedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobRequest{}, ErrNotFound
		}
		return JobRequest{}, fmt.Errorf("job: set rating: %w", err)
	}
	return jr, nil
}

const applicationColumns = `id, job_request_id, worker_id, message, proposed_price_cents, status, created_at`

func scanApplication(row rowScanner) (WorkerApplication, error) {
	var app WorkerApplication
	err := row.Scan(&app.ID, &app.JobRequestID, &app.WorkerID, &app.Message,
		&app.ProposedPriceCents, &app.Status, &app.CreatedAt)
	return app, err
}

func (r *PGRepository) InsertApplication(ctx context.Context, tx pgx.Tx, app WorkerApplication) (WorkerApplication, error) {
	const insertSQL = `
		INSERT INTO worker_applications (id, job_request_id, worker_id, message, proposed_price_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + applicationColumns

	created, err := scanApplication(tx.QueryRow(ctx, insertSQL,
		app.ID, app.JobRequestID, app.WorkerID, app.Message, app.ProposedPriceCents))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return WorkerApplication{}, ErrAlreadyApplied
		}
		return WorkerApplication{}, fmt.Errorf("job: insert application: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetApplication(ctx context.Context, tx pgx.Tx, id string) (WorkerApplication, error) {
	app, err := scanApplication(tx.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM worker_applications WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WorkerApplication{}, ErrNotFound
		}
		return WorkerApplication{}, fmt.Errorf("job: get application: %w", err)
	}
	return app, nil
}

// AcceptApplicationRow accepts the application only while it is still pending.
func (r *PGRepository) AcceptApplicationRow(ctx context.Context, tx pgx.Tx, id string) (WorkerApplication, error) {
	const acceptSQL = `
		UPDATE worker_applications
		SET status = 'accepted'
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + applicationColumns

	app, err := scanApplication(tx.QueryRow(ctx, acceptSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WorkerApplication{}, ErrInvalidState
		}
		return WorkerApplication{}, fmt.Errorf("job: accept application row: %w", err)
	}
	return app, nil
}

func (r *PGRepository) RejectPendingSiblings(ctx context.Context, tx pgx.Tx, jobRequestID, exceptID string) error {
	const rejectSQL = `
		UPDATE worker_applications
		SET status = 'rejected'
		WHERE job_request_id = $1 AND id <> $2 AND status = 'pending'`

	if _, err := tx.Exec(ctx, rejectSQL, jobRequestID, exceptID); err != nil {
		return fmt.Errorf("job: reject sibling applications: %w", err)
	}
	return nil
}

const detailSQL = `
	SELECT j.` + jobColumnsAliased + `, w.name
	FROM job_requests j
	LEFT JOIN workers w ON w.id = j.worker_id
`

// jobColumnsAliased re-qualifies jobColumns for joined queries.
const jobColumnsAliased = `id, j.customer_id, j.worker_id, j.title, j.description, j.budget_cents,
	j.final_price_cents, j.discount_percent, j.discounted_price_cents, j.status,
	j.scheduled_at, j.completed_at, j.rating, j.rated_at, j.created_at, j.updated_at`

func scanDetail(row rowScanner) (Detail, error) {
	var d Detail
	err := row.Scan(
		&d.ID, &d.CustomerID, &d.WorkerID, &d.Title, &d.Description,
		&d.BudgetCents, &d.FinalPriceCents, &d.DiscountPercent,
		&d.DiscountedPriceCents, &d.Status, &d.ScheduledAt, &d.CompletedAt,
		&d.Rating, &d.RatedAt, &d.CreatedAt, &d.UpdatedAt, &d.WorkerName,
	)
	return d, err
}

func (r *PGRepository) Get(ctx context.Context, id string) (Detail, error) {
	d, err := scanDetail(r.pool.QueryRow(ctx, detailSQL+` WHERE j.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, ErrNotFound
		}
		return Detail{}, fmt.Errorf("job: get: %w", err)
	}

	apps, err := r.applicationsFor(ctx, []string{d.ID})
	if err != nil {
		return Detail{}, err
	}
	d.Applications = apps[d.ID]
	return d, nil
}

func (r *PGRepository) ListForCustomer(ctx context.Context, customerID string, filters Filters) ([]Detail, int, error) {
	limit := filters.PerPage
	offset := (filters.Page - 1) * filters.PerPage

	query := fmt.Sprintf(`%s WHERE j.customer_id = $1 ORDER BY j.created_at DESC LIMIT %d OFFSET %d`,
		detailSQL, limit, offset)
	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, 0, fmt.Errorf("job: list for customer: %w", err)
	}
	defer rows.Close()

	var (
		details []Detail
		ids     []string
	)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("job: scan detail: %w", err)
		}
		details = append(details, d)
		ids = append(ids, d.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("job: list for customer rows: %w", err)
	}

	if len(ids) > 0 {
		apps, err := r.applicationsFor(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range details {
			details[i].Applications = apps[details[i].ID]
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM job_requests WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("job: count for customer: %w", err)
	}

	return details, total, nil
}

func (r *PGRepository) applicationsFor(ctx context.Context, jobRequestIDs []string) (map[string][]ApplicationView, error) {
	const appsSQL = `
		SELECT a.id, a.job_request_id, a.worker_id, a.message, a.proposed_price_cents,
		       a.status, a.created_at, w.name
		FROM worker_applications a
		JOIN workers w ON w.id = a.worker_id
		WHERE a.job_request_id = ANY($1)
		ORDER BY a.created_at ASC`

	rows, err := r.pool.Query(ctx, appsSQL, jobRequestIDs)
	if err != nil {
		return nil, fmt.Errorf("job: list applications: %w", err)
	}
	defer rows.Close()

	byJob := make(map[string][]ApplicationView)
	for rows.Next() {
		var v ApplicationView
		if err := rows.Scan(&v.ID, &v.JobRequestID, &v.WorkerID, &v.Message,
			&v.ProposedPriceCents, &v.Status, &v.CreatedAt, &v.WorkerName); err != nil {
			return nil, fmt.Errorf("job: scan application: %w", err)
		}
		byJob[v.JobRequestID] = append(byJob[v.JobRequestID], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job: applications rows: %w", err)
	}
	return byJob, nil
}

// ListAvailable returns open requests the worker has not applied to yet.
func (r *PGRepository) ListAvailable(ctx context.Context, workerID string, filters Filters) ([]JobRequest, int, error) {
	const where = `
		WHERE j.status = 'pending' AND j.worker_id IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM worker_applications a
			WHERE a.job_request_id = j.id AND a.worker_id = $1
		  )`

	limit := filters.PerPage
	offset := (filters.Page - 1) * filters.PerPage

	query := fmt.Sprintf(`SELECT j.%s FROM job_requests j%s ORDER BY j.created_at DESC LIMIT %d OFFSET %d`,
		jobColumnsAliased, where, limit, offset)
	items, err := r.collectJobs(ctx, query, workerID)
	if err != nil {
		return nil, 0, fmt.Errorf("job: list available: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM job_requests j`+where, workerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("job: count available: %w", err)
	}
	return items, total, nil
}

func (r *PGRepository) ListMine(ctx context.Context, workerID string, filters Filters) ([]JobRequest, int, error) {
	limit := filters.PerPage
	offset := (filters.Page - 1) * filters.PerPage

	query := fmt.Sprintf(`SELECT %s FROM job_requests WHERE worker_id = $1 ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		jobColumns, limit, offset)
	items, err := r.collectJobs(ctx, query, workerID)
	if err != nil {
		return nil, 0, fmt.Errorf("job: list mine: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM job_requests WHERE worker_id = $1`, workerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("job: count mine: %w", err)
	}
	return items, total, nil
}

func (r *PGRepository) collectJobs(ctx context.Context, query string, args ...any) ([]JobRequest, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []JobRequest
	for rows.Next() {
		jr, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, jr)
	}
	return items, rows.Err()
}
