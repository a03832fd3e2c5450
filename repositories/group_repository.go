package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sideline-hq/sideline/models"
	"github.com/lib/pq"
)

var (
	ErrGroupNotFound     = errors.New("group not found")
	ErrGroupPostNotFound = errors.New("group post not found")
)

type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id int) (*models.Group, error)
	GetByRosterID(ctx context.Context, rosterID int) (*models.Group, error)
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id int) error
	ListByMember(ctx context.Context, userID int) ([]*models.Group, error)
	ListPublic(ctx context.Context) ([]*models.Group, error)
	ListIDsByMember(ctx context.Context, userID int) ([]int, error)

	// UpdateMembers переписывает оба денормализованных столбца состава
	// одним UPDATE — это «однодокументная» запись ролевых мутаций
	// (promote/demote/transfer), исключающая окно с двумя владельцами.
	UpdateMembers(ctx context.Context, groupID int, memberIDs []int, details []models.ParticipantRecord) error
	AddMember(ctx context.Context, groupID int, record models.ParticipantRecord) error
	UpdateMemberRecord(ctx context.Context, groupID int, record models.ParticipantRecord) error

	CreatePost(ctx context.Context, post *models.GroupPost) error
	ListPosts(ctx context.Context, groupID int) ([]*models.GroupPost, error)
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

const groupColumns = `id, name, description, is_public, member_ids, member_details,
	associated_roster_id, created_at`

func scanGroup(row interface{ Scan(...interface{}) error }) (*models.Group, error) {
	group := &models.Group{}
	var memberIDs pq.Int64Array
	var details []byte

	err := row.Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.IsPublic,
		&memberIDs,
		&details,
		&group.AssociatedRosterID,
		&group.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	group.MemberIDs = int64sToInts(memberIDs)
	if err := unmarshalJSONB(details, &group.MemberDetails); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *postgresGroupRepository) Create(ctx context.Context, group *models.Group) error {
	details, err := marshalJSONB(group.MemberDetails)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO groups (name, description, is_public, member_ids, member_details, associated_roster_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		group.Name,
		group.Description,
		group.IsPublic,
		pq.Array(intsToInt64s(group.MemberIDs)),
		details,
		group.AssociatedRosterID,
	).Scan(&group.ID, &group.CreatedAt)
}

func (r *postgresGroupRepository) GetByID(ctx context.Context, id int) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`
	group, err := scanGroup(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return group, nil
}

func (r *postgresGroupRepository) GetByRosterID(ctx context.Context, rosterID int) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE associated_roster_id = $1`
	group, err := scanGroup(r.db.QueryRowContext(ctx, query, rosterID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return group, nil
}

func (r *postgresGroupRepository) Update(ctx context.Context, group *models.Group) error {
	query := `UPDATE groups SET name = $1, description = $2, is_public = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, group.Name, group.Description, group.IsPublic, group.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) ListByMember(ctx context.Context, userID int) ([]*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE $1 = ANY(member_ids) ORDER BY created_at DESC`
	return r.queryGroups(ctx, query, userID)
}

func (r *postgresGroupRepository) ListPublic(ctx context.Context) ([]*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE is_public ORDER BY created_at DESC`
	return r.queryGroups(ctx, query)
}

func (r *postgresGroupRepository) ListIDsByMember(ctx context.Context, userID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM groups WHERE $1 = ANY(member_ids)`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *postgresGroupRepository) queryGroups(ctx context.Context, query string, args ...interface{}) ([]*models.Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]*models.Group, 0)
	for rows.Next() {
		group, scanErr := scanGroup(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		groups = append(groups, group)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *postgresGroupRepository) UpdateMembers(ctx context.Context, groupID int, memberIDs []int, details []models.ParticipantRecord) error {
	detailsJSON, err := marshalJSONB(details)
	if err != nil {
		return err
	}

	query := `UPDATE groups SET member_ids = $2, member_details = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, groupID, pq.Array(intsToInt64s(memberIDs)), detailsJSON)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) AddMember(ctx context.Context, groupID int, record models.ParticipantRecord) error {
	recordJSON, err := marshalJSONB(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE groups SET
			member_ids = CASE WHEN $2 = ANY(member_ids)
				THEN member_ids ELSE array_append(member_ids, $2) END,
			member_details = CASE WHEN member_details @> jsonb_build_array(jsonb_build_object('user_id', $2))
				THEN member_details ELSE member_details || jsonb_build_array($3::jsonb) END
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, groupID, record.UserID, recordJSON)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}

// UpdateMemberRecord переписывает отображаемые поля участника, сохраняя
// его роль в группе (fan-out обновления профиля).
func (r *postgresGroupRepository) UpdateMemberRecord(ctx context.Context, groupID int, record models.ParticipantRecord) error {
	recordJSON, err := marshalJSONB(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE groups SET member_details = (
			SELECT COALESCE(jsonb_agg(
				CASE WHEN (elem->>'user_id')::int = $2
					THEN $3::jsonb || jsonb_build_object('role', elem->'role')
					ELSE elem END
			), '[]'::jsonb)
			FROM jsonb_array_elements(member_details) elem
		)
		WHERE id = $1 AND $2 = ANY(member_ids)`

	result, err := r.db.ExecContext(ctx, query, groupID, record.UserID, recordJSON)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) CreatePost(ctx context.Context, post *models.GroupPost) error {
	query := `
		INSERT INTO group_posts (group_id, author_id, author_name, author_photo, text, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		post.GroupID,
		post.AuthorID,
		post.AuthorName,
		post.AuthorPhoto,
		post.Text,
		post.ImageURL,
	).Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrGroupNotFound
		}
		return err
	}
	return nil
}

func (r *postgresGroupRepository) ListPosts(ctx context.Context, groupID int) ([]*models.GroupPost, error) {
	query := `
		SELECT id, group_id, author_id, author_name, author_photo, text, image_url, created_at
		FROM group_posts
		WHERE group_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]*models.GroupPost, 0)
	for rows.Next() {
		post := &models.GroupPost{}
		if scanErr := rows.Scan(
			&post.ID,
			&post.GroupID,
			&post.AuthorID,
			&post.AuthorName,
			&post.AuthorPhoto,
			&post.Text,
			&post.ImageURL,
			&post.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		posts = append(posts, post)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}
