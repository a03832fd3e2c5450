package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sideline-hq/sideline/models"
	"github.com/lib/pq"
)

var ErrFeedbackNotFound = errors.New("feedback not found")

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	GetByID(ctx context.Context, id int) (*models.Feedback, error)
	List(ctx context.Context) ([]*models.Feedback, error)
	UpdateStatus(ctx context.Context, id int, status models.FeedbackStatus) error
	AddDeveloperNote(ctx context.Context, id int, note models.DeveloperNote) error

	// ToggleVote атомарно переключает голос пользователя и возвращает
	// обновлённое состояние. Повторный вызов — обратная операция.
	ToggleVote(ctx context.Context, id, userID int) (*models.Feedback, error)
}

type postgresFeedbackRepository struct {
	db *sql.DB
}

func NewPostgresFeedbackRepository(db *sql.DB) FeedbackRepository {
	return &postgresFeedbackRepository{db: db}
}

const feedbackColumns = `id, title, type, description, author_id, author_name, status,
	votes, voter_ids, developer_notes, created_at`

func scanFeedback(row interface{ Scan(...interface{}) error }) (*models.Feedback, error) {
	feedback := &models.Feedback{}
	var voterIDs pq.Int64Array
	var notes []byte

	err := row.Scan(
		&feedback.ID,
		&feedback.Title,
		&feedback.Type,
		&feedback.Description,
		&feedback.AuthorID,
		&feedback.AuthorName,
		&feedback.Status,
		&feedback.Votes,
		&voterIDs,
		&notes,
		&feedback.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	feedback.VoterIDs = int64sToInts(voterIDs)
	if err := unmarshalJSONB(notes, &feedback.DeveloperNotes); err != nil {
		return nil, err
	}
	return feedback, nil
}

func (r *postgresFeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	query := `
		INSERT INTO feedback (title, type, description, author_id, author_name, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		feedback.Title,
		feedback.Type,
		feedback.Description,
		feedback.AuthorID,
		feedback.AuthorName,
		feedback.Status,
	).Scan(&feedback.ID, &feedback.CreatedAt)
}

func (r *postgresFeedbackRepository) GetByID(ctx context.Context, id int) (*models.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE id = $1`
	feedback, err := scanFeedback(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFeedbackNotFound
		}
		return nil, err
	}
	return feedback, nil
}

func (r *postgresFeedbackRepository) List(ctx context.Context) ([]*models.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback ORDER BY votes DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*models.Feedback, 0)
	for rows.Next() {
		feedback, scanErr := scanFeedback(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		items = append(items, feedback)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *postgresFeedbackRepository) UpdateStatus(ctx context.Context, id int, status models.FeedbackStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE feedback SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFeedbackNotFound)
}

func (r *postgresFeedbackRepository) AddDeveloperNote(ctx context.Context, id int, note models.DeveloperNote) error {
	noteJSON, err := marshalJSONB(note)
	if err != nil {
		return err
	}

	query := `
		UPDATE feedback SET developer_notes = developer_notes || jsonb_build_array($2::jsonb)
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, noteJSON)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFeedbackNotFound)
}

func (r *postgresFeedbackRepository) ToggleVote(ctx context.Context, id, userID int) (*models.Feedback, error) {
	query := `
		UPDATE feedback SET
			votes = CASE WHEN $2 = ANY(voter_ids) THEN votes - 1 ELSE votes + 1 END,
			voter_ids = CASE WHEN $2 = ANY(voter_ids)
				THEN array_remove(voter_ids, $2) ELSE array_append(voter_ids, $2) END
		WHERE id = $1
		RETURNING ` + feedbackColumns

	feedback, err := scanFeedback(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFeedbackNotFound
		}
		return nil, err
	}
	return feedback, nil
}
