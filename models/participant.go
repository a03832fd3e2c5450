package models

// GroupRole — роль участника внутри группы (не путать с UserRole).
type GroupRole string

const (
	GroupRoleOwner  GroupRole = "owner"
	GroupRoleAdmin  GroupRole = "admin"
	GroupRoleMember GroupRole = "member"
)

// ParticipantRecord — денормализованная копия отображаемых данных
// пользователя, встраиваемая в чаты, группы и ростеры, чтобы не делать
// join при каждом чтении. При обновлении профиля все копии
// переписываются fan-out'ом (см. services.UserService.UpdateProfile).
type ParticipantRecord struct {
	UserID   int       `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	PhotoURL string    `json:"photo_url,omitempty"`
	Role     GroupRole `json:"role,omitempty"`
}

// NewParticipantRecord снимает копию отображаемых полей пользователя.
func NewParticipantRecord(u *User) ParticipantRecord {
	rec := ParticipantRecord{
		UserID: u.ID,
		Name:   u.DisplayName(),
		Email:  u.Email,
	}
	if u.PhotoURL != nil {
		rec.PhotoURL = *u.PhotoURL
	}
	return rec
}
