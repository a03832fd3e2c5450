package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Валидация и бизнес-правила
	ErrValidationFailed   = errors.New("validation failed")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrRosterNameRequired = errors.New("roster name is required")
	ErrGroupNameRequired  = errors.New("group name is required")
	ErrRecipientsRequired = errors.New("at least one recipient is required")
	ErrEmptyMessage       = errors.New("message must contain text or an image")
	ErrInvalidCapacity    = errors.New("roster max capacity must be positive")
	ErrCannotMessageSelf  = errors.New("cannot start a direct chat with yourself")
	ErrRequestNotPending  = errors.New("request is not pending")

	// Конфликты
	ErrUserEmailConflict = errors.New("email address is already in use")
	ErrAlreadyOnRoster   = errors.New("user is already on this roster")
	ErrRequestConflict   = errors.New("a pending request for this roster already exists")
	ErrRosterFull        = errors.New("roster is at max capacity")

	// Аутентификация и авторизация
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrReauthRequired         = errors.New("recent authentication required: confirm your password and retry")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrManagerActionForbidden = errors.New("only the roster manager can perform this action")
	ErrNotChatParticipant     = errors.New("user is not a participant of this chat")

	// Ролевой движок групп
	ErrNotGroupMember = errors.New("user is not a member of this group")
	ErrRoleForbidden  = errors.New("group role does not permit this action")
	ErrLastOwner      = errors.New("group must keep exactly one owner")
	ErrOwnerOnly      = errors.New("only the group owner can perform this action")

	// Специфичные "не найдено" (дают больше контекста, чем ErrNotFound)
	ErrUserNotFound     = errors.New("user not found")
	ErrRosterNotFound   = errors.New("roster not found")
	ErrGroupNotFound    = errors.New("group not found")
	ErrChatNotFound     = errors.New("chat not found")
	ErrRequestNotFound  = errors.New("join request not found")
	ErrFeedbackNotFound = errors.New("feedback not found")
)
