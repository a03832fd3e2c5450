package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sideline-hq/sideline/models"
	"github.com/lib/pq"
)

var (
	ErrRequestNotFound = errors.New("roster request not found")
	ErrRequestConflict = errors.New("pending request already exists for this roster and user")
)

type RequestRepository interface {
	Create(ctx context.Context, request *models.RosterRequest) error
	GetByID(ctx context.Context, id int) (*models.RosterRequest, error)
	ListByManager(ctx context.Context, managerID int) ([]*models.RosterRequest, error)
	ListByUser(ctx context.Context, userID int) ([]*models.RosterRequest, error)
	// Delete завершает заявку: и approved, и denied терминальны,
	// запись не сохраняется.
	Delete(ctx context.Context, id int) error
}

type postgresRequestRepository struct {
	db *sql.DB
}

func NewPostgresRequestRepository(db *sql.DB) RequestRepository {
	return &postgresRequestRepository{db: db}
}

const requestColumns = `id, roster_id, roster_name, manager_id, user_id, user_name, user_email, status, created_at`

func scanRequest(row interface{ Scan(...interface{}) error }) (*models.RosterRequest, error) {
	request := &models.RosterRequest{}
	err := row.Scan(
		&request.ID,
		&request.RosterID,
		&request.RosterName,
		&request.ManagerID,
		&request.UserID,
		&request.UserName,
		&request.UserEmail,
		&request.Status,
		&request.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (r *postgresRequestRepository) Create(ctx context.Context, request *models.RosterRequest) error {
	query := `
		INSERT INTO roster_requests (roster_id, roster_name, manager_id, user_id, user_name, user_email, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		request.RosterID,
		request.RosterName,
		request.ManagerID,
		request.UserID,
		request.UserName,
		request.UserEmail,
		request.Status,
	).Scan(&request.ID, &request.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique (roster_id, user_id)
				return ErrRequestConflict
			case "23503":
				return ErrRosterNotFound
			}
		}
		return err
	}
	return nil
}

func (r *postgresRequestRepository) GetByID(ctx context.Context, id int) (*models.RosterRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM roster_requests WHERE id = $1`
	request, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

func (r *postgresRequestRepository) ListByManager(ctx context.Context, managerID int) ([]*models.RosterRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM roster_requests WHERE manager_id = $1 ORDER BY created_at ASC`
	return r.queryRequests(ctx, query, managerID)
}

func (r *postgresRequestRepository) ListByUser(ctx context.Context, userID int) ([]*models.RosterRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM roster_requests WHERE user_id = $1 ORDER BY created_at ASC`
	return r.queryRequests(ctx, query, userID)
}

func (r *postgresRequestRepository) queryRequests(ctx context.Context, query string, args ...interface{}) ([]*models.RosterRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]*models.RosterRequest, 0)
	for rows.Next() {
		request, scanErr := scanRequest(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		requests = append(requests, request)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *postgresRequestRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM roster_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRequestNotFound)
}
