package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sideline-hq/sideline/models"
)

var ErrMessageNotFound = errors.New("message not found")

type MessageRepository interface {
	// Append вставляет сообщение и в той же транзакции обновляет
	// денормализованное превью и счётчики непрочитанного на чате.
	Append(ctx context.Context, message *models.Message) error

	// ListByChat возвращает сообщения чата по возрастанию времени.
	// Ненулевой since отсекает историю старше отметки (hidden_history).
	ListByChat(ctx context.Context, chatID int, since *time.Time, limit int) ([]*models.Message, error)
}

type postgresMessageRepository struct {
	db *sql.DB
}

func NewPostgresMessageRepository(db *sql.DB) MessageRepository {
	return &postgresMessageRepository{db: db}
}

func (r *postgresMessageRepository) Append(ctx context.Context, message *models.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO messages (chat_id, text, image_url, sender_id, sender_name, sender_photo, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err = tx.QueryRowContext(ctx, insertQuery,
		message.ChatID,
		message.Text,
		message.ImageURL,
		message.SenderID,
		message.SenderName,
		message.SenderPhoto,
		message.Type,
	).Scan(&message.ID, &message.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	// Инкремент всем участникам, кроме отправителя, и превью — одним UPDATE.
	bumpQuery := `
		UPDATE chats SET
			unread_counts = COALESCE((
				SELECT jsonb_object_agg(key,
					CASE WHEN key = $2::text THEN value::int ELSE value::int + 1 END)
				FROM jsonb_each_text(unread_counts)
			), '{}'::jsonb),
			last_message = $3,
			last_message_time = $4
		WHERE id = $1`

	result, err := tx.ExecContext(ctx, bumpQuery,
		message.ChatID,
		message.SenderID,
		message.Preview(),
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to bump chat preview: %w", err)
	}
	if err := checkAffectedRows(result, ErrChatNotFound); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message append: %w", err)
	}
	return nil
}

func (r *postgresMessageRepository) ListByChat(ctx context.Context, chatID int, since *time.Time, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, chat_id, text, image_url, sender_id, sender_name, sender_photo, type, created_at
		FROM messages
		WHERE chat_id = $1 AND ($2::timestamptz IS NULL OR created_at >= $2)
		ORDER BY created_at ASC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, chatID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		message := &models.Message{}
		if scanErr := rows.Scan(
			&message.ID,
			&message.ChatID,
			&message.Text,
			&message.ImageURL,
			&message.SenderID,
			&message.SenderName,
			&message.SenderPhoto,
			&message.Type,
			&message.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		messages = append(messages, message)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}
