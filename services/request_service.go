package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sideline-hq/sideline/models"
	"github.com/sideline-hq/sideline/realtime"
	"github.com/sideline-hq/sideline/repositories"
	"github.com/sideline-hq/sideline/storage"
)

// ApprovalResult — структурированный итог одобрения заявки. Шаги
// выполняются последовательно без отката: провал позднего шага не
// отменяет ранние, вызывающий видит, что именно успело примениться.
type ApprovalResult struct {
	RequestID     int   `json:"request_id"`
	RosterID      int   `json:"roster_id"`
	PlayerAdded   bool  `json:"player_added"`
	ChatJoined    bool  `json:"chat_joined"`
	GroupJoined   *bool `json:"group_joined,omitempty"`
	RequestClosed bool  `json:"request_closed"`
}

type RequestService interface {
	// CreateRequest подаёт заявку игрока на discoverable-ростер.
	// Повторная pending-заявка на ту же пару (roster, user) отклоняется.
	CreateRequest(ctx context.Context, userID, rosterID int) (*models.RosterRequest, error)

	// Approve: игрок в состав → игрок в ростерный чат → игрок в
	// привязанную группу (если есть) → заявка закрыта.
	Approve(ctx context.Context, requestID, actorID int) (*ApprovalResult, error)
	Deny(ctx context.Context, requestID, actorID int) error

	ListByManager(ctx context.Context, managerID int) ([]*models.RosterRequest, error)
	ListByUser(ctx context.Context, userID int) ([]*models.RosterRequest, error)
}

type requestService struct {
	requestRepo repositories.RequestRepository
	rosterRepo  repositories.RosterRepository
	chatRepo    repositories.ChatRepository
	groupRepo   repositories.GroupRepository
	userRepo    repositories.UserRepository
	uploader    storage.FileUploader
	hub         *realtime.Hub
	logger      *slog.Logger
}

func NewRequestService(
	requestRepo repositories.RequestRepository,
	rosterRepo repositories.RosterRepository,
	chatRepo repositories.ChatRepository,
	groupRepo repositories.GroupRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	hub *realtime.Hub,
	logger *slog.Logger,
) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		rosterRepo:  rosterRepo,
		chatRepo:    chatRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		uploader:    uploader,
		hub:         hub,
		logger:      logger,
	}
}

func (s *requestService) CreateRequest(ctx context.Context, userID, rosterID int) (*models.RosterRequest, error) {
	roster, err := s.rosterRepo.GetByID(ctx, rosterID)
	if err != nil {
		if errors.Is(err, repositories.ErrRosterNotFound) {
			return nil, ErrRosterNotFound
		}
		return nil, fmt.Errorf("failed to get roster %d: %w", rosterID, err)
	}
	if !roster.IsDiscoverable {
		return nil, ErrForbiddenOperation
	}
	if roster.HasPlayer(userID) {
		return nil, ErrAlreadyOnRoster
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	request := &models.RosterRequest{
		RosterID:   rosterID,
		RosterName: roster.Name,
		ManagerID:  roster.CreatedBy,
		UserID:     userID,
		UserName:   user.DisplayName(),
		UserEmail:  user.Email,
		Status:     models.RequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		switch {
		case errors.Is(err, repositories.ErrRequestConflict):
			return nil, ErrRequestConflict
		case errors.Is(err, repositories.ErrRosterNotFound):
			return nil, ErrRosterNotFound
		}
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	s.hub.BroadcastToRoom(realtime.UserRoom(roster.CreatedBy), realtime.Event{
		Type:    realtime.EventRequestUpdated,
		Payload: request,
	})
	return request, nil
}

func (s *requestService) Approve(ctx context.Context, requestID, actorID int) (*ApprovalResult, error) {
	request, err := s.getPending(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	player, err := s.userRepo.GetByID(ctx, request.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get player %d: %w", request.UserID, err)
	}
	record := participantRecord(player, s.uploader)

	result := &ApprovalResult{RequestID: requestID, RosterID: request.RosterID}

	// Шаг 1: состав. Единственный шаг, отказ которого прерывает одобрение
	// целиком — без него остальные не имеют смысла.
	if err := s.rosterRepo.AddPlayer(ctx, request.RosterID, record); err != nil {
		if errors.Is(err, repositories.ErrRosterFull) {
			return nil, ErrRosterFull
		}
		if errors.Is(err, repositories.ErrRosterNotFound) {
			return nil, ErrRosterNotFound
		}
		return nil, fmt.Errorf("failed to add player to roster: %w", err)
	}
	result.PlayerAdded = true

	// Шаг 2: ростерный чат.
	if chat, chatErr := s.chatRepo.GetByRosterID(ctx, request.RosterID); chatErr == nil {
		if addErr := s.chatRepo.AddParticipant(ctx, chat.ID, record); addErr != nil {
			s.logger.Error("approval: failed to add player to roster chat",
				slog.Int("request_id", requestID), slog.Int("chat_id", chat.ID), slog.Any("error", addErr))
		} else {
			result.ChatJoined = true
		}
	} else if !errors.Is(chatErr, repositories.ErrChatNotFound) {
		s.logger.Error("approval: failed to look up roster chat",
			slog.Int("request_id", requestID), slog.Any("error", chatErr))
	}

	// Шаг 3: привязанная группа, если она существует.
	if group, groupErr := s.groupRepo.GetByRosterID(ctx, request.RosterID); groupErr == nil {
		memberRecord := record
		memberRecord.Role = models.GroupRoleMember
		joined := true
		if addErr := s.groupRepo.AddMember(ctx, group.ID, memberRecord); addErr != nil {
			s.logger.Error("approval: failed to add player to group",
				slog.Int("request_id", requestID), slog.Int("group_id", group.ID), slog.Any("error", addErr))
			joined = false
		}
		result.GroupJoined = &joined
	} else if !errors.Is(groupErr, repositories.ErrGroupNotFound) {
		s.logger.Error("approval: failed to look up roster group",
			slog.Int("request_id", requestID), slog.Any("error", groupErr))
	}

	// Шаг 4: закрыть заявку. Оставшаяся pending-заявка при уже
	// добавленном игроке безвредна: повторное одобрение идемпотентно.
	if err := s.requestRepo.Delete(ctx, requestID); err != nil {
		s.logger.Error("approval: failed to close request",
			slog.Int("request_id", requestID), slog.Any("error", err))
	} else {
		result.RequestClosed = true
	}

	request.Status = models.RequestStatusApproved
	s.hub.BroadcastToRoom(realtime.UserRoom(request.UserID), realtime.Event{
		Type:    realtime.EventRequestUpdated,
		Payload: request,
	})
	return result, nil
}

func (s *requestService) Deny(ctx context.Context, requestID, actorID int) error {
	request, err := s.getPending(ctx, requestID, actorID)
	if err != nil {
		return err
	}

	if err := s.requestRepo.Delete(ctx, requestID); err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("failed to delete request %d: %w", requestID, err)
	}

	request.Status = models.RequestStatusDenied
	s.hub.BroadcastToRoom(realtime.UserRoom(request.UserID), realtime.Event{
		Type:    realtime.EventRequestUpdated,
		Payload: request,
	})
	return nil
}

func (s *requestService) ListByManager(ctx context.Context, managerID int) ([]*models.RosterRequest, error) {
	requests, err := s.requestRepo.ListByManager(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for manager %d: %w", managerID, err)
	}
	return requests, nil
}

func (s *requestService) ListByUser(ctx context.Context, userID int) ([]*models.RosterRequest, error) {
	requests, err := s.requestRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for user %d: %w", userID, err)
	}
	return requests, nil
}

func (s *requestService) getPending(ctx context.Context, requestID, actorID int) (*models.RosterRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get request %d: %w", requestID, err)
	}
	if request.ManagerID != actorID {
		return nil, ErrManagerActionForbidden
	}
	if request.Status != models.RequestStatusPending {
		return nil, ErrRequestNotPending
	}
	return request, nil
}
