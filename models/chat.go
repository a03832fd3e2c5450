package models

import "time"

// ChatType соответствует ENUM chat_type в БД.
type ChatType string

const (
	ChatTypeDM     ChatType = "dm"
	ChatTypeGroup  ChatType = "group"
	ChatTypeRoster ChatType = "roster"
)

// Chat — разговор (личный, групповой или привязанный к ростеру).
//
// VisibleTo всегда подмножество ParticipantIDs: пользователь, «скрывший»
// личный чат, остаётся участником (вторая сторона его по-прежнему видит),
// но убирается из VisibleTo. HiddenHistory хранит per-user отметку
// времени: сообщения старше неё этому пользователю не показываются,
// хотя физически не удаляются.
type Chat struct {
	ID                 int                 `json:"id" db:"id"`
	Type               ChatType            `json:"type" db:"type"`
	Name               string              `json:"name" db:"name"`
	ParticipantIDs     []int               `json:"participant_ids" db:"participant_ids"`
	VisibleTo          []int               `json:"visible_to" db:"visible_to"`
	ParticipantDetails []ParticipantRecord `json:"participant_details" db:"participant_details"`
	UnreadCounts       map[int]int         `json:"unread_counts" db:"unread_counts"`
	HiddenHistory      map[int]time.Time   `json:"hidden_history,omitempty" db:"hidden_history"`
	RosterID           *int                `json:"roster_id,omitempty" db:"roster_id"`
	LastMessage        *string             `json:"last_message,omitempty" db:"last_message"`
	LastMessageTime    *time.Time          `json:"last_message_time,omitempty" db:"last_message_time"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
}

// HasParticipant проверяет членство в разговоре (включая скрывших его).
func (c *Chat) HasParticipant(userID int) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsVisibleTo проверяет, показывается ли чат пользователю в списке.
func (c *Chat) IsVisibleTo(userID int) bool {
	for _, id := range c.VisibleTo {
		if id == userID {
			return true
		}
	}
	return false
}

type MessageType string

const (
	MessageTypeNormal MessageType = "normal"
	MessageTypeSystem MessageType = "system"
)

// Message неизменяемо после создания. Видимость при чтении определяется
// HiddenHistory родительского чата, а не самим сообщением.
type Message struct {
	ID          int         `json:"id" db:"id"`
	ChatID      int         `json:"chat_id" db:"chat_id"`
	Text        *string     `json:"text,omitempty" db:"text"`
	ImageURL    *string     `json:"image_url,omitempty" db:"image_url"`
	SenderID    int         `json:"sender_id" db:"sender_id"`
	SenderName  string      `json:"sender_name" db:"sender_name"`
	SenderPhoto *string     `json:"sender_photo,omitempty" db:"sender_photo"`
	Type        MessageType `json:"type" db:"type"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// Preview возвращает текст для денормализованного last_message на чате.
func (m *Message) Preview() string {
	if m.Text != nil && *m.Text != "" {
		return *m.Text
	}
	if m.ImageURL != nil {
		return "[image]"
	}
	return ""
}
