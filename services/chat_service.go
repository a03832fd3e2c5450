package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sideline-hq/sideline/models"
	"github.com/sideline-hq/sideline/realtime"
	"github.com/sideline-hq/sideline/repositories"
	"github.com/sideline-hq/sideline/storage"
)

const defaultMessagePageSize = 200

type SendMessageInput struct {
	Text     *string `json:"text,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

type ChatService interface {
	// CreateChat находит или создаёт разговор для набора адресатов.
	// Для одного адресата DM дедуплицируется: между парой пользователей
	// существует максимум один личный чат. Для нескольких адресатов
	// всегда создаётся новый групповой чат. Ростерные чаты этим путём
	// не создаются — только через жизненный цикл ростера.
	CreateChat(ctx context.Context, creatorID int, name string, emails []string) (*models.Chat, error)
	GetByID(ctx context.Context, chatID, userID int) (*models.Chat, error)
	ListMine(ctx context.Context, userID int) ([]*models.Chat, error)

	SendMessage(ctx context.Context, chatID, senderID int, input SendMessageInput) (*models.Message, error)
	ListMessages(ctx context.Context, chatID, userID int) ([]*models.Message, error)

	MarkChatAsRead(ctx context.Context, chatID, userID int) error
	HideChat(ctx context.Context, chatID, userID int) error
	UnhideChat(ctx context.Context, chatID, userID int) error
	LeaveChat(ctx context.Context, chatID, userID int) error
	ClearHistory(ctx context.Context, chatID, userID int) error

	UploadAttachment(ctx context.Context, chatID, userID int, filename, contentType string, reader io.Reader) (string, error)
}

type chatService struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	uploader    storage.FileUploader
	hub         *realtime.Hub
}

func NewChatService(
	chatRepo repositories.ChatRepository,
	messageRepo repositories.MessageRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	hub *realtime.Hub,
) ChatService {
	return &chatService{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		uploader:    uploader,
		hub:         hub,
	}
}

func (s *chatService) CreateChat(ctx context.Context, creatorID int, name string, emails []string) (*models.Chat, error) {
	if len(emails) == 0 {
		return nil, ErrRecipientsRequired
	}

	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get creator %d: %w", creatorID, err)
	}

	// Каждый email обязан разрешиться в пользователя.
	recipients := make([]*models.User, 0, len(emails))
	seen := map[int]bool{creatorID: true}
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if strings.EqualFold(email, creator.Email) {
			continue
		}
		user, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUserNotFound, email)
			}
			return nil, fmt.Errorf("failed to resolve recipient %s: %w", email, err)
		}
		if !seen[user.ID] {
			seen[user.ID] = true
			recipients = append(recipients, user)
		}
	}
	if len(recipients) == 0 {
		return nil, ErrCannotMessageSelf
	}

	if len(recipients) == 1 {
		other := recipients[0]
		existing, err := s.chatRepo.FindDirect(ctx, creatorID, other.ID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repositories.ErrChatNotFound) {
			return nil, fmt.Errorf("failed to look up direct chat: %w", err)
		}
		return s.createChat(ctx, models.ChatTypeDM, "", append([]*models.User{creator}, other))
	}

	if name == "" {
		names := make([]string, 0, len(recipients)+1)
		names = append(names, creator.DisplayName())
		for _, r := range recipients {
			names = append(names, r.DisplayName())
		}
		name = strings.Join(names, ", ")
	}
	return s.createChat(ctx, models.ChatTypeGroup, name, append([]*models.User{creator}, recipients...))
}

func (s *chatService) createChat(ctx context.Context, chatType models.ChatType, name string, members []*models.User) (*models.Chat, error) {
	chat := &models.Chat{
		Type:               chatType,
		Name:               name,
		ParticipantIDs:     make([]int, 0, len(members)),
		VisibleTo:          make([]int, 0, len(members)),
		ParticipantDetails: make([]models.ParticipantRecord, 0, len(members)),
		UnreadCounts:       make(map[int]int, len(members)),
	}
	for _, member := range members {
		chat.ParticipantIDs = append(chat.ParticipantIDs, member.ID)
		chat.VisibleTo = append(chat.VisibleTo, member.ID)
		chat.ParticipantDetails = append(chat.ParticipantDetails, participantRecord(member, s.uploader))
		chat.UnreadCounts[member.ID] = 0
	}

	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	for _, id := range chat.ParticipantIDs {
		s.hub.BroadcastToRoom(realtime.UserRoom(id), realtime.Event{
			Type:    realtime.EventChatUpdated,
			Payload: chat,
		})
	}
	return chat, nil
}

func (s *chatService) GetByID(ctx context.Context, chatID, userID int) (*models.Chat, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotChatParticipant
	}
	return chat, nil
}

func (s *chatService) ListMine(ctx context.Context, userID int) ([]*models.Chat, error) {
	chats, err := s.chatRepo.ListVisibleTo(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats for user %d: %w", userID, err)
	}
	return chats, nil
}

func (s *chatService) SendMessage(ctx context.Context, chatID, senderID int, input SendMessageInput) (*models.Message, error) {
	hasText := input.Text != nil && strings.TrimSpace(*input.Text) != ""
	if !hasText && input.ImageURL == nil {
		return nil, ErrEmptyMessage
	}

	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(senderID) {
		return nil, ErrNotChatParticipant
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get sender %d: %w", senderID, err)
	}
	hydratePhotoURL(sender, s.uploader)

	message := &models.Message{
		ChatID:      chatID,
		Text:        input.Text,
		ImageURL:    input.ImageURL,
		SenderID:    senderID,
		SenderName:  sender.DisplayName(),
		SenderPhoto: sender.PhotoURL,
		Type:        models.MessageTypeNormal,
	}

	// Вставка сообщения, превью и инкременты непрочитанного — одна
	// транзакция. Очереди повторной отправки нет: отказ возвращается
	// вызывающему как есть.
	if err := s.messageRepo.Append(ctx, message); err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	s.hub.BroadcastToRoom(realtime.ChatRoom(chatID), realtime.Event{
		Type:    realtime.EventMessageCreated,
		Payload: message,
	})
	for _, id := range chat.ParticipantIDs {
		s.hub.BroadcastToRoom(realtime.UserRoom(id), realtime.Event{
			Type:    realtime.EventChatUpdated,
			Payload: map[string]interface{}{"chat_id": chatID, "last_message": message.Preview(), "last_message_time": message.CreatedAt},
		})
	}
	return message, nil
}

// ListMessages отдаёт историю по возрастанию времени. Если для
// пользователя установлена отметка hidden_history, более старые
// сообщения отсекаются, хотя физически не удалены.
func (s *chatService) ListMessages(ctx context.Context, chatID, userID int) ([]*models.Message, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotChatParticipant
	}

	var since *time.Time
	if cutoff, ok := chat.HiddenHistory[userID]; ok {
		since = &cutoff
	}

	messages, err := s.messageRepo.ListByChat(ctx, chatID, since, defaultMessagePageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// MarkChatAsRead идемпотентен: повторный вызов оставляет счётчик нулевым.
func (s *chatService) MarkChatAsRead(ctx context.Context, chatID, userID int) error {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return ErrNotChatParticipant
	}

	if err := s.chatRepo.MarkRead(ctx, chatID, userID); err != nil {
		return fmt.Errorf("failed to mark chat as read: %w", err)
	}
	return nil
}

// HideChat убирает разговор из списка пользователя, не меняя членства:
// вторая сторона DM продолжает видеть чат и пользователя в нём.
func (s *chatService) HideChat(ctx context.Context, chatID, userID int) error {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return ErrNotChatParticipant
	}

	if err := s.chatRepo.Hide(ctx, chatID, userID); err != nil {
		return fmt.Errorf("failed to hide chat: %w", err)
	}
	return nil
}

func (s *chatService) UnhideChat(ctx context.Context, chatID, userID int) error {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return ErrNotChatParticipant
	}

	if err := s.chatRepo.Unhide(ctx, chatID, userID); err != nil {
		return fmt.Errorf("failed to unhide chat: %w", err)
	}
	return nil
}

// LeaveChat удаляет пользователя из разговора целиком. Для ростерных
// чатов состав управляется ростером, выход этим путём запрещён.
func (s *chatService) LeaveChat(ctx context.Context, chatID, userID int) error {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return ErrNotChatParticipant
	}
	if chat.Type == models.ChatTypeRoster {
		return ErrForbiddenOperation
	}

	if err := s.chatRepo.RemoveParticipant(ctx, chatID, userID); err != nil {
		return fmt.Errorf("failed to leave chat: %w", err)
	}
	return nil
}

// ClearHistory устанавливает пользователю отметку отсечения: прежние
// сообщения перестают показываться ему, оставаясь видимыми остальным.
func (s *chatService) ClearHistory(ctx context.Context, chatID, userID int) error {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return ErrNotChatParticipant
	}

	if err := s.chatRepo.SetHistoryCutoff(ctx, chatID, userID, time.Now()); err != nil {
		return fmt.Errorf("failed to set history cutoff: %w", err)
	}
	return nil
}

func (s *chatService) UploadAttachment(ctx context.Context, chatID, userID int, filename, contentType string, reader io.Reader) (string, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return "", err
	}
	if !chat.HasParticipant(userID) {
		return "", ErrNotChatParticipant
	}

	key := storage.AttachmentKey("chats", chatID, filename, time.Now())
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return "", fmt.Errorf("failed to upload attachment: %w", err)
	}
	return result.Location, nil
}

func (s *chatService) getChat(ctx context.Context, chatID int) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get chat %d: %w", chatID, err)
	}
	return chat, nil
}
