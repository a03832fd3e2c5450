package models

import "time"

// Roster представляет команду с ограниченным по вместимости списком игроков.
//
// PlayerIDs — производный индекс для быстрых проверок членства,
// Players — источник истины (структурированные записи). Оба столбца
// обновляются одним UPDATE, чтобы списки не разъезжались; фоновой
// reconciler чинит расхождения, если они всё же возникли.
type Roster struct {
	ID                int                 `json:"id" db:"id"`
	Name              string              `json:"name" db:"name"`
	Season            string              `json:"season" db:"season"`
	MaxCapacity       int                 `json:"max_capacity" db:"max_capacity"`
	CreatedBy         int                 `json:"created_by" db:"created_by"`
	IsDiscoverable    bool                `json:"is_discoverable" db:"is_discoverable"`
	LeagueID          *string             `json:"league_id,omitempty" db:"league_id"`
	TargetPlayerCount *int                `json:"target_player_count,omitempty" db:"target_player_count"`
	PlayerIDs         []int               `json:"player_ids" db:"player_ids"`
	Players           []ParticipantRecord `json:"players" db:"players"`
	CreatedAt         time.Time           `json:"created_at" db:"created_at"`

	ChatID  *int `json:"chat_id,omitempty" db:"-"`
	GroupID *int `json:"group_id,omitempty" db:"-"`
}

// HasPlayer проверяет членство по производному индексу.
func (r *Roster) HasPlayer(userID int) bool {
	for _, id := range r.PlayerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// RosterEvent — запись расписания команды (тренировка, матч).
type RosterEvent struct {
	ID        int       `json:"id" db:"id"`
	RosterID  int       `json:"roster_id" db:"roster_id"`
	Title     string    `json:"title" db:"title"`
	Location  *string   `json:"location,omitempty" db:"location"`
	StartsAt  time.Time `json:"starts_at" db:"starts_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty" db:"ends_at"`
	CreatedBy int       `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
