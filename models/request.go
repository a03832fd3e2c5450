package models

import "time"

// RequestStatus соответствует ENUM request_status в БД.
// pending — единственное нетерминальное состояние: approved и denied
// завершаются удалением записи (история заявок не хранится).
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusDenied   RequestStatus = "denied"
)

// RosterRequest — заявка игрока на вступление в ростер.
// Имя ростера и данные игрока денормализованы для списков менеджера.
type RosterRequest struct {
	ID         int           `json:"id" db:"id"`
	RosterID   int           `json:"roster_id" db:"roster_id"`
	RosterName string        `json:"roster_name" db:"roster_name"`
	ManagerID  int           `json:"manager_id" db:"manager_id"`
	UserID     int           `json:"user_id" db:"user_id"`
	UserName   string        `json:"user_name" db:"user_name"`
	UserEmail  string        `json:"user_email" db:"user_email"`
	Status     RequestStatus `json:"status" db:"status"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}
