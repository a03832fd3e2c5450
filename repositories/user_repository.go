package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sideline-hq/sideline/models"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserEmailConflict = errors.New("user email conflict")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateEmail(ctx context.Context, id int, email string) error
	UpdatePhotoKey(ctx context.Context, id int, key string) error
	Delete(ctx context.Context, id int) error

	UpsertSportDetail(ctx context.Context, detail *models.SportDetail) error
	GetSportDetail(ctx context.Context, userID int, sport string) (*models.SportDetail, error)
	ListSportDetails(ctx context.Context, userID int) ([]*models.SportDetail, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `id, first_name, last_name, preferred_name, email, phone, role,
	notification_preference, emergency_contact, password_hash, photo_key, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	var emergency []byte
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.PreferredName,
		&user.Email,
		&user.Phone,
		&user.Role,
		&user.Notification,
		&emergency,
		&user.PasswordHash,
		&user.PhotoKey,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(emergency, &user.Emergency); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	emergency, err := marshalJSONB(user.Emergency)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (first_name, last_name, preferred_name, email, phone, role,
			notification_preference, emergency_contact, password_hash, photo_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.PreferredName,
		user.Email,
		user.Phone,
		user.Role,
		user.Notification,
		emergency,
		user.PasswordHash,
		user.PhotoKey,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrUserEmailConflict
		}
		return err
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *postgresUserRepository) Update(ctx context.Context, user *models.User) error {
	emergency, err := marshalJSONB(user.Emergency)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, preferred_name = $3, phone = $4,
			notification_preference = $5, emergency_contact = $6, password_hash = $7
		WHERE id = $8`

	result, err := r.db.ExecContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.PreferredName,
		user.Phone,
		user.Notification,
		emergency,
		user.PasswordHash,
		user.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateEmail(ctx context.Context, id int, email string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET email = $1 WHERE id = $2`, email, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrUserEmailConflict
		}
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdatePhotoKey(ctx context.Context, id int, key string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET photo_key = $1 WHERE id = $2`, key, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpsertSportDetail(ctx context.Context, detail *models.SportDetail) error {
	query := `
		INSERT INTO sport_details (user_id, sport, position, jersey_number, skill_level, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, sport)
		DO UPDATE SET position = EXCLUDED.position, jersey_number = EXCLUDED.jersey_number,
			skill_level = EXCLUDED.skill_level, updated_at = NOW()
		RETURNING id, updated_at`

	return r.db.QueryRowContext(ctx, query,
		detail.UserID,
		detail.Sport,
		detail.Position,
		detail.JerseyNumber,
		detail.SkillLevel,
	).Scan(&detail.ID, &detail.UpdatedAt)
}

func (r *postgresUserRepository) GetSportDetail(ctx context.Context, userID int, sport string) (*models.SportDetail, error) {
	query := `
		SELECT id, user_id, sport, position, jersey_number, skill_level, updated_at
		FROM sport_details
		WHERE user_id = $1 AND sport = $2`

	detail := &models.SportDetail{}
	err := r.db.QueryRowContext(ctx, query, userID, sport).Scan(
		&detail.ID,
		&detail.UserID,
		&detail.Sport,
		&detail.Position,
		&detail.JerseyNumber,
		&detail.SkillLevel,
		&detail.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return detail, nil
}

func (r *postgresUserRepository) ListSportDetails(ctx context.Context, userID int) ([]*models.SportDetail, error) {
	query := `
		SELECT id, user_id, sport, position, jersey_number, skill_level, updated_at
		FROM sport_details
		WHERE user_id = $1
		ORDER BY sport`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]*models.SportDetail, 0)
	for rows.Next() {
		detail := &models.SportDetail{}
		if scanErr := rows.Scan(
			&detail.ID,
			&detail.UserID,
			&detail.Sport,
			&detail.Position,
			&detail.JerseyNumber,
			&detail.SkillLevel,
			&detail.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		details = append(details, detail)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
