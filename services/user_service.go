package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/sideline-hq/sideline/models"
	"github.com/sideline-hq/sideline/repositories"
	"github.com/sideline-hq/sideline/storage"
	"golang.org/x/sync/errgroup"
)

// propagationConcurrency ограничивает параллелизм fan-out записи
// денормализованных записей профиля.
const propagationConcurrency = 8

type UpdateProfileInput struct {
	FirstName     string                         `json:"first_name"`
	LastName      string                         `json:"last_name"`
	PreferredName *string                        `json:"preferred_name,omitempty"`
	Phone         *string                        `json:"phone,omitempty"`
	Notification  models.NotificationPreference  `json:"notification_preference,omitempty"`
	Emergency     *models.EmergencyContact       `json:"emergency_contact,omitempty"`
}

// PropagationResult — структурированный итог fan-out'а: сколько копий
// переписано и какие документы не удалось обновить. Частичный провал
// не маскируется общим успехом.
type PropagationResult struct {
	ChatsUpdated   int      `json:"chats_updated"`
	GroupsUpdated  int      `json:"groups_updated"`
	RostersUpdated int      `json:"rosters_updated"`
	Failures       []string `json:"failures,omitempty"`
}

func (p *PropagationResult) Complete() bool {
	return len(p.Failures) == 0
}

type UserService interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*models.User, *PropagationResult, error)
	UploadProfilePhoto(ctx context.Context, userID int, contentType string, reader io.Reader) (*models.User, *PropagationResult, error)

	UpsertSportDetail(ctx context.Context, userID int, detail *models.SportDetail) error
	ListSportDetails(ctx context.Context, userID int) ([]*models.SportDetail, error)
}

type userService struct {
	userRepo   repositories.UserRepository
	chatRepo   repositories.ChatRepository
	groupRepo  repositories.GroupRepository
	rosterRepo repositories.RosterRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewUserService(
	userRepo repositories.UserRepository,
	chatRepo repositories.ChatRepository,
	groupRepo repositories.GroupRepository,
	rosterRepo repositories.RosterRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) UserService {
	return &userService{
		userRepo:   userRepo,
		chatRepo:   chatRepo,
		groupRepo:  groupRepo,
		rosterRepo: rosterRepo,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *userService) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	hydratePhotoURL(user, s.uploader)
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*models.User, *PropagationResult, error) {
	if input.FirstName == "" {
		return nil, nil, ErrValidationFailed
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.PreferredName = input.PreferredName
	user.Phone = input.Phone
	if input.Notification != "" {
		user.Notification = input.Notification
	}
	if input.Emergency != nil {
		user.Emergency = input.Emergency
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to update user %d: %w", userID, err)
	}

	result := s.propagateParticipantRecord(ctx, user)
	user.PasswordHash = ""
	return user, result, nil
}

func (s *userService) UploadProfilePhoto(ctx context.Context, userID int, contentType string, reader io.Reader) (*models.User, *PropagationResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	key := storage.ProfilePhotoKey(userID)
	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, nil, fmt.Errorf("failed to upload profile photo: %w", err)
	}

	if err := s.userRepo.UpdatePhotoKey(ctx, userID, key); err != nil {
		return nil, nil, fmt.Errorf("failed to store photo key: %w", err)
	}
	user.PhotoKey = &key

	result := s.propagateParticipantRecord(ctx, user)
	user.PasswordHash = ""
	return user, result, nil
}

// propagateParticipantRecord переписывает денормализованную запись
// пользователя во всех чатах, группах и ростерах, где он состоит.
// Семантика allSettled: каждая запись обновляется независимо, провалы
// собираются в результат вместо отката или тихого успеха.
func (s *userService) propagateParticipantRecord(ctx context.Context, user *models.User) *PropagationResult {
	record := participantRecord(user, s.uploader)

	result := &PropagationResult{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(propagationConcurrency)

	chatIDs, err := s.chatRepo.ListIDsByParticipant(ctx, user.ID)
	if err != nil {
		result.Failures = append(result.Failures, fmt.Sprintf("list chats: %v", err))
	}
	for _, chatID := range chatIDs {
		chatID := chatID
		g.Go(func() error {
			if updateErr := s.chatRepo.UpdateParticipantRecord(gctx, chatID, record); updateErr != nil {
				mu.Lock()
				result.Failures = append(result.Failures, fmt.Sprintf("chat %d: %v", chatID, updateErr))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.ChatsUpdated++
			mu.Unlock()
			return nil
		})
	}

	groupIDs, err := s.groupRepo.ListIDsByMember(ctx, user.ID)
	if err != nil {
		result.Failures = append(result.Failures, fmt.Sprintf("list groups: %v", err))
	}
	for _, groupID := range groupIDs {
		groupID := groupID
		g.Go(func() error {
			if updateErr := s.groupRepo.UpdateMemberRecord(gctx, groupID, record); updateErr != nil {
				mu.Lock()
				result.Failures = append(result.Failures, fmt.Sprintf("group %d: %v", groupID, updateErr))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.GroupsUpdated++
			mu.Unlock()
			return nil
		})
	}

	rosterIDs, err := s.rosterRepo.ListIDsByPlayer(ctx, user.ID)
	if err != nil {
		result.Failures = append(result.Failures, fmt.Sprintf("list rosters: %v", err))
	}
	for _, rosterID := range rosterIDs {
		rosterID := rosterID
		g.Go(func() error {
			if updateErr := s.rosterRepo.UpdatePlayerRecord(gctx, rosterID, record); updateErr != nil {
				mu.Lock()
				result.Failures = append(result.Failures, fmt.Sprintf("roster %d: %v", rosterID, updateErr))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.RostersUpdated++
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait() // воркеры не возвращают ошибок, провалы уже собраны

	if !result.Complete() {
		s.logger.Warn("profile propagation incomplete",
			slog.Int("user_id", user.ID),
			slog.Int("failed", len(result.Failures)))
	}
	return result
}

func (s *userService) UpsertSportDetail(ctx context.Context, userID int, detail *models.SportDetail) error {
	if detail.Sport == "" {
		return ErrValidationFailed
	}
	detail.UserID = userID
	if err := s.userRepo.UpsertSportDetail(ctx, detail); err != nil {
		return fmt.Errorf("failed to upsert sport detail: %w", err)
	}
	return nil
}

func (s *userService) ListSportDetails(ctx context.Context, userID int) ([]*models.SportDetail, error) {
	details, err := s.userRepo.ListSportDetails(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sport details: %w", err)
	}
	return details, nil
}
