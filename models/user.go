package models

import "time"

// UserRole соответствует ENUM user_role в БД.
type UserRole string

const (
	RolePlayer    UserRole = "player"
	RoleManager   UserRole = "manager"
	RoleDeveloper UserRole = "developer"
)

type NotificationPreference string

const (
	NotifyAll      NotificationPreference = "all"
	NotifyMentions NotificationPreference = "mentions"
	NotifyNone     NotificationPreference = "none"
)

type EmergencyContact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation,omitempty"`
}

type User struct {
	ID            int                    `json:"id" db:"id"`
	FirstName     string                 `json:"first_name" db:"first_name"`
	LastName      string                 `json:"last_name" db:"last_name"`
	PreferredName *string                `json:"preferred_name,omitempty" db:"preferred_name"`
	Email         string                 `json:"email" db:"email"`
	Phone         *string                `json:"phone,omitempty" db:"phone"`
	Role          UserRole               `json:"role" db:"role"`
	Notification  NotificationPreference `json:"notification_preference" db:"notification_preference"`
	Emergency     *EmergencyContact      `json:"emergency_contact,omitempty" db:"-"`
	PasswordHash  string                 `json:"-" db:"password_hash"`
	CreatedAt     time.Time              `json:"created_at" db:"created_at"`

	PhotoKey *string `json:"-" db:"photo_key"`
	PhotoURL *string `json:"photo_url,omitempty" db:"-"`
}

// DisplayName возвращает имя для денормализованных записей:
// предпочитаемое имя, если задано, иначе "Имя Фамилия".
func (u *User) DisplayName() string {
	if u.PreferredName != nil && *u.PreferredName != "" {
		return *u.PreferredName
	}
	return u.FirstName + " " + u.LastName
}

// SportDetail — спортивный профиль пользователя (позиция, номер и т.п.),
// по одной записи на пару (user, sport).
type SportDetail struct {
	ID           int       `json:"id" db:"id"`
	UserID       int       `json:"user_id" db:"user_id"`
	Sport        string    `json:"sport" db:"sport"`
	Position     *string   `json:"position,omitempty" db:"position"`
	JerseyNumber *int      `json:"jersey_number,omitempty" db:"jersey_number"`
	SkillLevel   *string   `json:"skill_level,omitempty" db:"skill_level"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
