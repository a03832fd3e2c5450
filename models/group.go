package models

import "time"

// Group — сообщество с ролевым членством (owner/admin/member).
// Инвариант: ровно один участник с ролью owner.
type Group struct {
	ID                 int                 `json:"id" db:"id"`
	Name               string              `json:"name" db:"name"`
	Description        *string             `json:"description,omitempty" db:"description"`
	IsPublic           bool                `json:"is_public" db:"is_public"`
	MemberIDs          []int               `json:"member_ids" db:"member_ids"`
	MemberDetails      []ParticipantRecord `json:"member_details" db:"member_details"`
	AssociatedRosterID *int                `json:"associated_roster_id,omitempty" db:"associated_roster_id"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
}

// RoleOf возвращает роль пользователя в группе, или "" если он не участник.
func (g *Group) RoleOf(userID int) GroupRole {
	for _, m := range g.MemberDetails {
		if m.UserID == userID {
			return m.Role
		}
	}
	return ""
}

// OwnerCount считает участников с ролью owner (инвариант: всегда 1).
func (g *Group) OwnerCount() int {
	n := 0
	for _, m := range g.MemberDetails {
		if m.Role == GroupRoleOwner {
			n++
		}
	}
	return n
}

// GroupPost — запись в ленте группы.
type GroupPost struct {
	ID          int       `json:"id" db:"id"`
	GroupID     int       `json:"group_id" db:"group_id"`
	AuthorID    int       `json:"author_id" db:"author_id"`
	AuthorName  string    `json:"author_name" db:"author_name"`
	AuthorPhoto *string   `json:"author_photo,omitempty" db:"author_photo"`
	Text        string    `json:"text" db:"text"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
