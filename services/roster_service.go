package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sideline-hq/sideline/models"
	"github.com/sideline-hq/sideline/realtime"
	"github.com/sideline-hq/sideline/repositories"
	"github.com/sideline-hq/sideline/storage"
)

type CreateRosterInput struct {
	Name              string  `json:"name"`
	Season            string  `json:"season"`
	MaxCapacity       int     `json:"max_capacity"`
	IsDiscoverable    bool    `json:"is_discoverable"`
	LeagueID          *string `json:"league_id,omitempty"`
	TargetPlayerCount *int    `json:"target_player_count,omitempty"`

	// CreateGroup дополнительно создаёт группу-сообщество, привязанную
	// к ростеру, с менеджером в роли owner.
	CreateGroup   bool `json:"create_group"`
	GroupIsPublic bool `json:"group_is_public"`
}

type UpdateRosterInput struct {
	Name              string  `json:"name"`
	Season            string  `json:"season"`
	MaxCapacity       int     `json:"max_capacity"`
	IsDiscoverable    bool    `json:"is_discoverable"`
	LeagueID          *string `json:"league_id,omitempty"`
	TargetPlayerCount *int    `json:"target_player_count,omitempty"`
}

type CreateEventInput struct {
	Title    string     `json:"title"`
	Location *string    `json:"location,omitempty"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
}

type RosterService interface {
	// CreateRoster создаёт ростер, его ростерный чат (менеджер —
	// первый участник) и, по запросу, привязанную группу.
	CreateRoster(ctx context.Context, managerID int, input CreateRosterInput) (*models.Roster, error)
	GetByID(ctx context.Context, rosterID, currentUserID int) (*models.Roster, error)
	Update(ctx context.Context, rosterID, actorID int, input UpdateRosterInput) (*models.Roster, error)
	ListDiscoverable(ctx context.Context) ([]*models.Roster, error)
	ListMine(ctx context.Context, userID int) ([]*models.Roster, error)

	AddPlayer(ctx context.Context, rosterID, actorID, playerID int) error
	RemovePlayer(ctx context.Context, rosterID, actorID, playerID int) error

	// RecreateRosterChat отвязывает текущий чат от ростера (он остаётся
	// обычным групповым чатом со своей историей) и создаёт новый чистый
	// ростерный чат с текущим составом.
	RecreateRosterChat(ctx context.Context, rosterID, actorID int) (*models.Chat, error)

	CreateEvent(ctx context.Context, rosterID, actorID int, input CreateEventInput) (*models.RosterEvent, error)
	ListEvents(ctx context.Context, rosterID, currentUserID int) ([]*models.RosterEvent, error)

	// ReconcileRosters вызывается планировщиком: находит ростеры с
	// разъехавшимися списками и перестраивает индекс из записей.
	ReconcileRosters(ctx context.Context) error
}

type rosterService struct {
	rosterRepo  repositories.RosterRepository
	chatRepo    repositories.ChatRepository
	groupRepo   repositories.GroupRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	uploader    storage.FileUploader
	hub         *realtime.Hub
	logger      *slog.Logger
}

func NewRosterService(
	rosterRepo repositories.RosterRepository,
	chatRepo repositories.ChatRepository,
	groupRepo repositories.GroupRepository,
	messageRepo repositories.MessageRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	hub *realtime.Hub,
	logger *slog.Logger,
) RosterService {
	return &rosterService{
		rosterRepo:  rosterRepo,
		chatRepo:    chatRepo,
		groupRepo:   groupRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		uploader:    uploader,
		hub:         hub,
		logger:      logger,
	}
}

func (s *rosterService) CreateRoster(ctx context.Context, managerID int, input CreateRosterInput) (*models.Roster, error) {
	if input.Name == "" {
		return nil, ErrRosterNameRequired
	}
	if input.MaxCapacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	manager, err := s.userRepo.GetByID(ctx, managerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get manager %d: %w", managerID, err)
	}
	if manager.Role != models.RoleManager {
		return nil, ErrManagerActionForbidden
	}

	// Менеджер — первый игрок состава, оба списка заполняются вместе.
	managerRecord := participantRecord(manager, s.uploader)
	roster := &models.Roster{
		Name:              input.Name,
		Season:            input.Season,
		MaxCapacity:       input.MaxCapacity,
		CreatedBy:         managerID,
		IsDiscoverable:    input.IsDiscoverable,
		LeagueID:          input.LeagueID,
		TargetPlayerCount: input.TargetPlayerCount,
		PlayerIDs:         []int{managerID},
		Players:           []models.ParticipantRecord{managerRecord},
	}
	if err := s.rosterRepo.Create(ctx, roster); err != nil {
		return nil, fmt.Errorf("failed to create roster: %w", err)
	}

	chat, err := s.createRosterChat(ctx, roster, manager)
	if err != nil {
		// Ростер создан, чат — нет; состояние чинится через RecreateRosterChat.
		s.logger.Error("roster created without chat",
			slog.Int("roster_id", roster.ID), slog.Any("error", err))
		return roster, nil
	}
	roster.ChatID = &chat.ID

	if input.CreateGroup {
		ownerRecord := participantRecord(manager, s.uploader)
		ownerRecord.Role = models.GroupRoleOwner
		group := &models.Group{
			Name:               roster.Name,
			IsPublic:           input.GroupIsPublic,
			MemberIDs:          []int{managerID},
			MemberDetails:      []models.ParticipantRecord{ownerRecord},
			AssociatedRosterID: &roster.ID,
		}
		if err := s.groupRepo.Create(ctx, group); err != nil {
			s.logger.Error("roster created without group",
				slog.Int("roster_id", roster.ID), slog.Any("error", err))
		} else {
			roster.GroupID = &group.ID
		}
	}
	return roster, nil
}

func (s *rosterService) createRosterChat(ctx context.Context, roster *models.Roster, manager *models.User) (*models.Chat, error) {
	managerRecord := participantRecord(manager, s.uploader)

	chat := &models.Chat{
		Type:               models.ChatTypeRoster,
		Name:               roster.Name,
		ParticipantIDs:     []int{manager.ID},
		VisibleTo:          []int{manager.ID},
		ParticipantDetails: []models.ParticipantRecord{managerRecord},
		UnreadCounts:       map[int]int{manager.ID: 0},
		RosterID:           &roster.ID,
	}
	for i := range roster.Players {
		record := roster.Players[i]
		if record.UserID == manager.ID {
			continue
		}
		chat.ParticipantIDs = append(chat.ParticipantIDs, record.UserID)
		chat.VisibleTo = append(chat.VisibleTo, record.UserID)
		chat.ParticipantDetails = append(chat.ParticipantDetails, record)
		chat.UnreadCounts[record.UserID] = 0
	}

	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *rosterService) GetByID(ctx context.Context, rosterID, currentUserID int) (*models.Roster, error) {
	roster, err := s.getRoster(ctx, rosterID)
	if err != nil {
		return nil, err
	}
	if !roster.IsDiscoverable && roster.CreatedBy != currentUserID && !roster.HasPlayer(currentUserID) {
		return nil, ErrForbiddenOperation
	}

	if chat, chatErr := s.chatRepo.GetByRosterID(ctx, rosterID); chatErr == nil {
		roster.ChatID = &chat.ID
	}
	return roster, nil
}

func (s *rosterService) Update(ctx context.Context, rosterID, actorID int, input UpdateRosterInput) (*models.Roster, error) {
	roster, err := s.getRoster(ctx, rosterID)
	if err != nil {
		return nil, err
	}
	if roster.CreatedBy != actorID {
		return nil, ErrManagerActionForbidden
	}
	if input.Name == "" {
		return nil, ErrRosterNameRequired
	}
	if input.MaxCapacity < len(roster.PlayerIDs) || input.MaxCapacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	roster.Name = input.Name
	roster.Season = input.Season
	roster.MaxCapacity = input.MaxCapacity
	roster.IsDiscoverable = input.IsDiscoverable
	roster.LeagueID = input.LeagueID
	roster.TargetPlayerCount = input.TargetPlayerCount

	if err := s.rosterRepo.Update(ctx, roster); err != nil {
		return nil, fmt.Errorf("failed to update roster %d: %w", rosterID, err)
	}
	s.broadcastRosterUpdated(roster)
	return roster, nil
}

func (s *rosterService) ListDiscoverable(ctx context.Context) ([]*models.Roster, error) {
	rosters, err := s.rosterRepo.ListDiscoverable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list discoverable rosters: %w", err)
	}
	return rosters, nil
}

// ListMine для игрока — ростеры, где он в составе; для менеджера —
// дополнительно созданные им.
func (s *rosterService) ListMine(ctx context.Context, userID int) ([]*models.Roster, error) {
	rosters, err := s.rosterRepo.ListByPlayer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rosters for user %d: %w", userID, err)
	}

	managed, err := s.rosterRepo.ListByManager(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list managed rosters for user %d: %w", userID, err)
	}
	seen := make(map[int]bool, len(rosters))
	for _, r := range rosters {
		seen[r.ID] = true
	}
	for _, r := range managed {
		if !seen[r.ID] {
			rosters = append(rosters, r)
		}
	}
	return rosters, nil
}

func (s *rosterService) AddPlayer(ctx context.Context, rosterID, actorID, playerID int) error {
	roster, err := s.getRoster(ctx, rosterID)
	if err != nil {
		return err
	}
	if roster.CreatedBy != actorID {
		return ErrManagerActionForbidden
	}

	player, err := s.userRepo.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get player %d: %w", playerID, err)
	}
	record := participantRecord(player, s.uploader)

	if err := s.rosterRepo.AddPlayer(ctx, rosterID, record); err != nil {
		if errors.Is(err, repositories.ErrRosterFull) {
			return ErrRosterFull
		}
		return fmt.Errorf("failed to add player to roster %d: %w", rosterID, err)
	}

	// Чат подтягивается вслед за составом; провал не откатывает ростер.
	if chat, chatErr := s.chatRepo.GetByRosterID(ctx, rosterID); chatErr == nil {
		if addErr := s.chatRepo.AddParticipant(ctx, chat.ID, record); addErr != nil {
			s.logger.Error("failed to add player to roster chat",
				slog.Int("roster_id", rosterID), slog.Int("chat_id", chat.ID), slog.Any("error", addErr))
		}
	}

	s.broadcastRosterUpdated(roster)
	return nil
}

func (s *rosterService) RemovePlayer(ctx context.Context, rosterID, actorID, playerID int) error {
	roster, err := s.getRoster(ctx, rosterID)
	if err != nil {
		return err
	}
	// Менеджер убирает любого; игрок может покинуть состав сам.
	if roster.CreatedBy != actorID && actorID != playerID {
		return ErrManagerActionForbidden
	}
	if !roster.HasPlayer(playerID) {
		return ErrUserNotFound
	}

	if err := s.rosterRepo.RemovePlayer(ctx, rosterID, playerID); err != nil {
		return fmt.Errorf("failed to remove player from roster %d: %w", rosterID, err)
	}

	if chat, chatErr := s.chatRepo.GetByRosterID(ctx, rosterID); chatErr == nil {
		if rmErr := s.chatRepo.RemoveParticipant(ctx, chat.ID, playerID); rmErr != nil {
			s.logger.Error("failed to remove player from roster chat",
				slog.Int("roster_id", rosterID), slog.Int("chat_id", chat.ID), slog.Any("error", rmErr))
		}
	}

	s.broadcastRosterUpdated(roster)
	return nil
}

func (s *rosterService) RecreateRosterChat(ctx context.Context, rosterID, actorID int) (*models.Chat, error) {
	roster, err := s.getRoster(ctx, rosterID)
	if err != nil {
		return nil, err
	}
	if roster.CreatedBy != actorID {
		return nil, ErrManagerActionForbidden
	}

	manager, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get manager %d: %w", actorID, err)
	}

	if old, chatErr := s.chatRepo.GetByRosterID(ctx, rosterID); chatErr == nil {
		if demoteErr := s.chatRepo.DemoteRosterChat(ctx, old.ID); demoteErr != nil {
			return nil, fmt.Errorf("failed to detach old roster chat: %w", demoteErr)
		}
	} else if !errors.Is(chatErr, repositories.ErrChatNotFound) {
		return nil, fmt.Errorf("failed to look up roster chat: %w", chatErr)
	}

	chat, err := s.createRosterChat(ctx, roster, manager)
	if err != nil {
		return nil, fmt.Errorf("failed to create roster chat: %w", err)
	}

	text := "Чат команды пересоздан"
	system := &models.Message{
		ChatID:     chat.ID,
		Text:       &text,
		SenderID:   actorID,
		SenderName: manager.DisplayName(),
		Type:       models.MessageTypeSystem,
	}
	if err := s.messageRepo.Append(ctx, system); err != nil {
		s.logger.Error("failed to append system message",
			slog.Int("chat_id", chat.ID), slog.Any("error", err))
	}

	for _, id := range chat.ParticipantIDs {
		s.hub.BroadcastToRoom(realtime.UserRoom(id), realtime.Event{
			Type:    realtime.EventChatUpdated,
			Payload: chat,
		})
	}
	return chat, nil
}

func (s *rosterService) CreateEvent(ctx context.Context, rosterID, actorID int, input CreateEventInput) (*models.RosterEvent, error) {
	roster, err := s.getRoster(ctx, rosterID)
	if err != nil {
		return nil, err
	}
	if roster.CreatedBy != actorID {
		return nil, ErrManagerActionForbidden
	}
	if input.Title == "" || input.StartsAt.IsZero() {
		return nil, ErrValidationFailed
	}

	event := &models.RosterEvent{
		RosterID:  rosterID,
		Title:     input.Title,
		Location:  input.Location,
		StartsAt:  input.StartsAt,
		EndsAt:    input.EndsAt,
		CreatedBy: actorID,
	}
	if err := s.rosterRepo.CreateEvent(ctx, event); err != nil {
		if errors.Is(err, repositories.ErrRosterNotFound) {
			return nil, ErrRosterNotFound
		}
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.broadcastRosterUpdated(roster)
	return event, nil
}

func (s *rosterService) ListEvents(ctx context.Context, rosterID, currentUserID int) ([]*models.RosterEvent, error) {
	roster, err := s.getRoster(ctx, rosterID)
	if err != nil {
		return nil, err
	}
	if roster.CreatedBy != currentUserID && !roster.HasPlayer(currentUserID) {
		return nil, ErrForbiddenOperation
	}

	events, err := s.rosterRepo.ListEvents(ctx, rosterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *rosterService) ReconcileRosters(ctx context.Context) error {
	ids, err := s.rosterRepo.ListInconsistentIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list inconsistent rosters: %w", err)
	}
	for _, id := range ids {
		if repairErr := s.rosterRepo.RepairPlayerIDs(ctx, id); repairErr != nil {
			s.logger.Error("failed to repair roster",
				slog.Int("roster_id", id), slog.Any("error", repairErr))
			continue
		}
		s.logger.Info("repaired roster player index", slog.Int("roster_id", id))
	}
	return nil
}

func (s *rosterService) broadcastRosterUpdated(roster *models.Roster) {
	s.hub.BroadcastToRoom(realtime.UserRoom(roster.CreatedBy), realtime.Event{
		Type:    realtime.EventRosterUpdated,
		Payload: map[string]interface{}{"roster_id": roster.ID},
	})
	for _, id := range roster.PlayerIDs {
		s.hub.BroadcastToRoom(realtime.UserRoom(id), realtime.Event{
			Type:    realtime.EventRosterUpdated,
			Payload: map[string]interface{}{"roster_id": roster.ID},
		})
	}
}

func (s *rosterService) getRoster(ctx context.Context, rosterID int) (*models.Roster, error) {
	roster, err := s.rosterRepo.GetByID(ctx, rosterID)
	if err != nil {
		if errors.Is(err, repositories.ErrRosterNotFound) {
			return nil, ErrRosterNotFound
		}
		return nil, fmt.Errorf("failed to get roster %d: %w", rosterID, err)
	}
	return roster, nil
}
