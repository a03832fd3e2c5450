package models

import "time"

type FeedbackType string

const (
	FeedbackTypeSuggestion FeedbackType = "Suggestion"
	FeedbackTypeBug        FeedbackType = "Bug"
	FeedbackTypeGeneral    FeedbackType = "General"
)

// FeedbackStatus намеренно не ограничен порядком переходов:
// разработчик может перевести запись из любого статуса в любой.
type FeedbackStatus string

const (
	FeedbackStatusProposed   FeedbackStatus = "Proposed"
	FeedbackStatusAccepted   FeedbackStatus = "Accepted"
	FeedbackStatusInProgress FeedbackStatus = "InProgress"
	FeedbackStatusCompleted  FeedbackStatus = "Completed"
	FeedbackStatusRejected   FeedbackStatus = "Rejected"
)

type DeveloperNote struct {
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Feedback — пользовательское предложение/баг. Голос — переключатель:
// повторное голосование того же пользователя снимает его голос.
type Feedback struct {
	ID             int             `json:"id" db:"id"`
	Title          string          `json:"title" db:"title"`
	Type           FeedbackType    `json:"type" db:"type"`
	Description    string          `json:"description" db:"description"`
	AuthorID       int             `json:"author_id" db:"author_id"`
	AuthorName     string          `json:"author_name" db:"author_name"`
	Status         FeedbackStatus  `json:"status" db:"status"`
	Votes          int             `json:"votes" db:"votes"`
	VoterIDs       []int           `json:"voter_ids" db:"voter_ids"`
	DeveloperNotes []DeveloperNote `json:"developer_notes" db:"developer_notes"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// HasVoted проверяет, голосовал ли пользователь.
func (f *Feedback) HasVoted(userID int) bool {
	for _, id := range f.VoterIDs {
		if id == userID {
			return true
		}
	}
	return false
}
