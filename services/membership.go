package services

import "github.com/sideline-hq/sideline/models"

// Ролевой движок групп: чистые проверки над денормализованным списком
// участников. Сервисы вызывают их перед каждой мутацией; сами правила
// не обращаются к хранилищу.
//
// owner  — любые мутации состава и передача владения;
// admin  — добавление участников и удаление рядовых участников;
// member — только чтение и посты.
// Инвариант: в группе всегда ровно один owner; любая операция, которая
// оставила бы группу без владельца, отклоняется.

func canAddMember(group *models.Group, actorID int) error {
	switch group.RoleOf(actorID) {
	case models.GroupRoleOwner, models.GroupRoleAdmin:
		return nil
	case models.GroupRoleMember:
		return ErrRoleForbidden
	default:
		return ErrNotGroupMember
	}
}

func canRemoveMember(group *models.Group, actorID, targetID int) error {
	actorRole := group.RoleOf(actorID)
	targetRole := group.RoleOf(targetID)
	if actorRole == "" {
		return ErrNotGroupMember
	}
	if targetRole == "" {
		return ErrNotGroupMember
	}

	switch actorRole {
	case models.GroupRoleOwner:
		if targetRole == models.GroupRoleOwner {
			// Удаление владельца оставило бы группу без owner:
			// сначала передача владения.
			return ErrLastOwner
		}
		return nil
	case models.GroupRoleAdmin:
		if targetRole != models.GroupRoleMember {
			return ErrRoleForbidden
		}
		return nil
	default:
		return ErrRoleForbidden
	}
}

func canChangeRole(group *models.Group, actorID int) error {
	switch group.RoleOf(actorID) {
	case models.GroupRoleOwner:
		return nil
	case "":
		return ErrNotGroupMember
	default:
		return ErrOwnerOnly
	}
}

func canPost(group *models.Group, actorID int) error {
	if group.RoleOf(actorID) == "" {
		return ErrNotGroupMember
	}
	return nil
}

// withRole возвращает копию списка участников, где роль target заменена.
func withRole(details []models.ParticipantRecord, targetID int, role models.GroupRole) []models.ParticipantRecord {
	out := make([]models.ParticipantRecord, len(details))
	copy(out, details)
	for i := range out {
		if out[i].UserID == targetID {
			out[i].Role = role
		}
	}
	return out
}

// withoutMember возвращает копии обоих списков без target.
func withoutMember(group *models.Group, targetID int) ([]int, []models.ParticipantRecord) {
	ids := make([]int, 0, len(group.MemberIDs))
	for _, id := range group.MemberIDs {
		if id != targetID {
			ids = append(ids, id)
		}
	}
	details := make([]models.ParticipantRecord, 0, len(group.MemberDetails))
	for _, d := range group.MemberDetails {
		if d.UserID != targetID {
			details = append(details, d)
		}
	}
	return ids, details
}
