package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sideline-hq/sideline/models"
	"github.com/lib/pq"
)

var (
	ErrChatNotFound = errors.New("chat not found")
)

// ChatRepository инкапсулирует все мутации документа разговора.
// Конкурентные изменения массивов участников и счётчиков выражены
// одиночными атомарными UPDATE-ами (array_append/array_remove/jsonb_set),
// а не вычисляются на клиенте, поэтому два одновременных писателя не
// затирают друг друга.
type ChatRepository interface {
	Create(ctx context.Context, chat *models.Chat) error
	GetByID(ctx context.Context, id int) (*models.Chat, error)
	GetByRosterID(ctx context.Context, rosterID int) (*models.Chat, error)
	FindDirect(ctx context.Context, userA, userB int) (*models.Chat, error)
	ListVisibleTo(ctx context.Context, userID int) ([]*models.Chat, error)
	ListIDsByParticipant(ctx context.Context, userID int) ([]int, error)

	AddParticipant(ctx context.Context, chatID int, record models.ParticipantRecord) error
	RemoveParticipant(ctx context.Context, chatID, userID int) error
	Hide(ctx context.Context, chatID, userID int) error
	Unhide(ctx context.Context, chatID, userID int) error
	MarkRead(ctx context.Context, chatID, userID int) error
	SetHistoryCutoff(ctx context.Context, chatID, userID int, cutoff time.Time) error
	UpdateParticipantRecord(ctx context.Context, chatID int, record models.ParticipantRecord) error
	DemoteRosterChat(ctx context.Context, chatID int) error
}

type postgresChatRepository struct {
	db *sql.DB
}

func NewPostgresChatRepository(db *sql.DB) ChatRepository {
	return &postgresChatRepository{db: db}
}

const chatColumns = `id, type, name, participant_ids, visible_to, participant_details,
	unread_counts, hidden_history, roster_id, last_message, last_message_time, created_at`

func scanChat(row interface{ Scan(...interface{}) error }) (*models.Chat, error) {
	chat := &models.Chat{}
	var participantIDs, visibleTo pq.Int64Array
	var details, unread, hidden []byte

	err := row.Scan(
		&chat.ID,
		&chat.Type,
		&chat.Name,
		&participantIDs,
		&visibleTo,
		&details,
		&unread,
		&hidden,
		&chat.RosterID,
		&chat.LastMessage,
		&chat.LastMessageTime,
		&chat.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	chat.ParticipantIDs = int64sToInts(participantIDs)
	chat.VisibleTo = int64sToInts(visibleTo)
	if err := unmarshalJSONB(details, &chat.ParticipantDetails); err != nil {
		return nil, err
	}
	chat.UnreadCounts = make(map[int]int)
	if err := unmarshalJSONB(unread, &chat.UnreadCounts); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(hidden, &chat.HiddenHistory); err != nil {
		return nil, err
	}
	return chat, nil
}

func (r *postgresChatRepository) Create(ctx context.Context, chat *models.Chat) error {
	details, err := marshalJSONB(chat.ParticipantDetails)
	if err != nil {
		return err
	}
	unread, err := marshalJSONB(chat.UnreadCounts)
	if err != nil {
		return err
	}
	hidden, err := marshalJSONB(chat.HiddenHistory)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO chats (type, name, participant_ids, visible_to, participant_details,
			unread_counts, hidden_history, roster_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		chat.Type,
		chat.Name,
		pq.Array(intsToInt64s(chat.ParticipantIDs)),
		pq.Array(intsToInt64s(chat.VisibleTo)),
		details,
		unread,
		hidden,
		chat.RosterID,
	).Scan(&chat.ID, &chat.CreatedAt)
}

func (r *postgresChatRepository) GetByID(ctx context.Context, id int) (*models.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE id = $1`
	chat, err := scanChat(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return chat, nil
}

func (r *postgresChatRepository) GetByRosterID(ctx context.Context, rosterID int) (*models.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE roster_id = $1 AND type = 'roster'`
	chat, err := scanChat(r.db.QueryRowContext(ctx, query, rosterID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return chat, nil
}

// FindDirect ищет существующий личный чат между двумя пользователями
// (дедупликация: между одной парой не должно быть двух DM).
func (r *postgresChatRepository) FindDirect(ctx context.Context, userA, userB int) (*models.Chat, error) {
	query := `
		SELECT ` + chatColumns + `
		FROM chats
		WHERE type = 'dm'
		  AND participant_ids @> ARRAY[$1::int, $2::int]
		  AND cardinality(participant_ids) = 2
		ORDER BY id
		LIMIT 1`

	chat, err := scanChat(r.db.QueryRowContext(ctx, query, userA, userB))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return chat, nil
}

func (r *postgresChatRepository) ListVisibleTo(ctx context.Context, userID int) ([]*models.Chat, error) {
	query := `
		SELECT ` + chatColumns + `
		FROM chats
		WHERE $1 = ANY(visible_to)
		ORDER BY last_message_time DESC NULLS LAST, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := make([]*models.Chat, 0)
	for rows.Next() {
		chat, scanErr := scanChat(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		chats = append(chats, chat)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *postgresChatRepository) ListIDsByParticipant(ctx context.Context, userID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM chats WHERE $1 = ANY(participant_ids)`, userID)
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

// AddParticipant идемпотентно добавляет пользователя во все четыре
// денормализованных поля одним UPDATE. Счётчик непрочитанного нового
// участника начинается с нуля, существующий счётчик не сбрасывается.
func (r *postgresChatRepository) AddParticipant(ctx context.Context, chatID int, record models.ParticipantRecord) error {
	recordJSON, err := marshalJSONB(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE chats SET
			participant_ids = CASE WHEN $2 = ANY(participant_ids)
				THEN participant_ids ELSE array_append(participant_ids, $2) END,
			visible_to = CASE WHEN $2 = ANY(visible_to)
				THEN visible_to ELSE array_append(visible_to, $2) END,
			participant_details = CASE WHEN participant_details @> jsonb_build_array(jsonb_build_object('user_id', $2))
				THEN participant_details ELSE participant_details || jsonb_build_array($3::jsonb) END,
			unread_counts = CASE WHEN unread_counts ? $2::text
				THEN unread_counts ELSE unread_counts || jsonb_build_object($2::text, 0) END
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, chatID, record.UserID, recordJSON)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrChatNotFound)
}

func (r *postgresChatRepository) RemoveParticipant(ctx context.Context, chatID, userID int) error {
	query := `
		UPDATE chats SET
			participant_ids = array_remove(participant_ids, $2),
			visible_to = array_remove(visible_to, $2),
			participant_details = (
				SELECT COALESCE(jsonb_agg(elem), '[]'::jsonb)
				FROM jsonb_array_elements(participant_details) elem
				WHERE (elem->>'user_id')::int <> $2
			),
			unread_counts = unread_counts - $2::text
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, chatID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrChatNotFound)
}

// Hide убирает чат из списка пользователя, не трогая членство:
// вторая сторона продолжает видеть разговор.
func (r *postgresChatRepository) Hide(ctx context.Context, chatID, userID int) error {
	query := `UPDATE chats SET visible_to = array_remove(visible_to, $2) WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, chatID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrChatNotFound)
}

// Unhide возвращает чат в список, только если пользователь всё ещё участник.
func (r *postgresChatRepository) Unhide(ctx context.Context, chatID, userID int) error {
	query := `
		UPDATE chats SET visible_to = CASE WHEN $2 = ANY(visible_to)
			THEN visible_to ELSE array_append(visible_to, $2) END
		WHERE id = $1 AND $2 = ANY(participant_ids)`

	result, err := r.db.ExecContext(ctx, query, chatID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrChatNotFound)
}

// MarkRead обнуляет счётчик пользователя. Идемпотентно.
func (r *postgresChatRepository) MarkRead(ctx context.Context, chatID, userID int) error {
	query := `
		UPDATE chats SET unread_counts = jsonb_set(unread_counts, ARRAY[$2::text], '0'::jsonb, true)
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, chatID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrChatNotFound)
}

func (r *postgresChatRepository) SetHistoryCutoff(ctx context.Context, chatID, userID int, cutoff time.Time) error {
	cutoffJSON, err := marshalJSONB(cutoff)
	if err != nil {
		return err
	}

	query := `
		UPDATE chats SET hidden_history = jsonb_set(COALESCE(hidden_history, '{}'::jsonb), ARRAY[$2::text], $3::jsonb, true)
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, chatID, userID, cutoffJSON)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrChatNotFound)
}

// UpdateParticipantRecord переписывает встроенную запись одного
// пользователя внутри participant_details (fan-out обновления профиля).
func (r *postgresChatRepository) UpdateParticipantRecord(ctx context.Context, chatID int, record models.ParticipantRecord) error {
	recordJSON, err := marshalJSONB(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE chats SET participant_details = (
			SELECT COALESCE(jsonb_agg(
				CASE WHEN (elem->>'user_id')::int = $2 THEN $3::jsonb ELSE elem END
			), '[]'::jsonb)
			FROM jsonb_array_elements(participant_details) elem
		)
		WHERE id = $1 AND $2 = ANY(participant_ids)`

	result, err := r.db.ExecContext(ctx, query, chatID, record.UserID, recordJSON)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrChatNotFound)
}

// DemoteRosterChat отвязывает чат от ростера и понижает его до обычного
// группового: история остаётся видимой тем, у кого она была.
func (r *postgresChatRepository) DemoteRosterChat(ctx context.Context, chatID int) error {
	query := `UPDATE chats SET type = 'group', roster_id = NULL WHERE id = $1 AND type = 'roster'`
	result, err := r.db.ExecContext(ctx, query, chatID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrChatNotFound)
}
