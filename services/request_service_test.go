package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/sideline-hq/sideline/models"
	"github.com/sideline-hq/sideline/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requestFixture struct {
	svc       RequestService
	rosterSvc RosterService

	requestRepo *fakeRequestRepo
	rosterRepo  *fakeRosterRepo
	chatRepo    *fakeChatRepo
	groupRepo   *fakeGroupRepo
	userRepo    *fakeUserRepo

	manager *models.User
	player  *models.User

	roster *models.Roster
}

// newRequestFixture готовит discoverable-ростер с чатом и привязанной
// группой — полный сценарий одобрения заявки.
func newRequestFixture(t *testing.T) *requestFixture {
	t.Helper()
	userRepo := newFakeUserRepo()
	rosterRepo := newFakeRosterRepo()
	chatRepo := newFakeChatRepo()
	groupRepo := newFakeGroupRepo()
	requestRepo := newFakeRequestRepo()
	msgRepo := newFakeMessageRepo(chatRepo)
	hub := realtime.NewHub()
	logger := slog.Default()

	f := &requestFixture{
		requestRepo: requestRepo,
		rosterRepo:  rosterRepo,
		chatRepo:    chatRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		manager:     userRepo.mustAddUser(&models.User{FirstName: "Max", LastName: "Keller", Email: "max@example.com", Role: models.RoleManager}),
		player:      userRepo.mustAddUser(&models.User{FirstName: "Pia", LastName: "Novak", Email: "pia@example.com", Role: models.RolePlayer}),
	}
	f.rosterSvc = NewRosterService(rosterRepo, chatRepo, groupRepo, msgRepo, userRepo, &fakeUploader{}, hub, logger)
	f.svc = NewRequestService(requestRepo, rosterRepo, chatRepo, groupRepo, userRepo, &fakeUploader{}, hub, logger)

	roster, err := f.rosterSvc.CreateRoster(context.Background(), f.manager.ID, CreateRosterInput{
		Name:           "Tigers",
		MaxCapacity:    5,
		IsDiscoverable: true,
		CreateGroup:    true,
	})
	require.NoError(t, err)
	f.roster = roster
	return f
}

func TestRequestService_CreateRequest(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	request, err := f.svc.CreateRequest(ctx, f.player.ID, f.roster.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.Equal(t, f.manager.ID, request.ManagerID)
	assert.Equal(t, "Tigers", request.RosterName, "roster name denormalized onto the request")
	assert.Equal(t, f.player.DisplayName(), request.UserName)

	// повторная заявка на тот же ростер отклоняется
	_, err = f.svc.CreateRequest(ctx, f.player.ID, f.roster.ID)
	assert.ErrorIs(t, err, ErrRequestConflict)
}

func TestRequestService_CreateRequestGuards(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	// скрытый ростер не принимает заявок
	hidden, err := f.rosterSvc.CreateRoster(ctx, f.manager.ID, CreateRosterInput{Name: "Hidden", MaxCapacity: 5})
	require.NoError(t, err)
	_, err = f.svc.CreateRequest(ctx, f.player.ID, hidden.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	// уже состоящий в ростере не подаёт заявку
	require.NoError(t, f.rosterSvc.AddPlayer(ctx, f.roster.ID, f.manager.ID, f.player.ID))
	_, err = f.svc.CreateRequest(ctx, f.player.ID, f.roster.ID)
	assert.ErrorIs(t, err, ErrAlreadyOnRoster)

	_, err = f.svc.CreateRequest(ctx, f.player.ID, 999)
	assert.ErrorIs(t, err, ErrRosterNotFound)
}

func TestRequestService_ApproveFansOutAllMemberships(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	request, err := f.svc.CreateRequest(ctx, f.player.ID, f.roster.ID)
	require.NoError(t, err)

	result, err := f.svc.Approve(ctx, request.ID, f.manager.ID)
	require.NoError(t, err)
	assert.True(t, result.PlayerAdded)
	assert.True(t, result.ChatJoined)
	require.NotNil(t, result.GroupJoined)
	assert.True(t, *result.GroupJoined)
	assert.True(t, result.RequestClosed)

	// состав
	roster, err := f.rosterRepo.GetByID(ctx, f.roster.ID)
	require.NoError(t, err)
	assert.True(t, roster.HasPlayer(f.player.ID))

	// ростерный чат, непрочитанное начинается с нуля
	chat, err := f.chatRepo.GetByRosterID(ctx, f.roster.ID)
	require.NoError(t, err)
	assert.True(t, chat.HasParticipant(f.player.ID))
	assert.Equal(t, 0, chat.UnreadCounts[f.player.ID])

	// привязанная группа, роль — рядовой участник
	group, err := f.groupRepo.GetByRosterID(ctx, f.roster.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GroupRoleMember, group.RoleOf(f.player.ID))

	// заявка закрыта удалением
	_, err = f.requestRepo.GetByID(ctx, request.ID)
	assert.Error(t, err)
}

func TestRequestService_ApproveOnlyByOwningManager(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	stranger := f.userRepo.mustAddUser(&models.User{FirstName: "Eve", LastName: "Moss", Email: "eve@example.com", Role: models.RoleManager})

	request, err := f.svc.CreateRequest(ctx, f.player.ID, f.roster.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, request.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrManagerActionForbidden)
	err = f.svc.Deny(ctx, request.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrManagerActionForbidden)
}

func TestRequestService_ApproveFullRosterFailsBeforeFanOut(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	// Забиваем состав до отказа: одно из пяти мест занято менеджером.
	for i := 0; i < 4; i++ {
		filler := f.userRepo.mustAddUser(&models.User{FirstName: "Filler", Email: string(rune('a'+i)) + "@example.com", Role: models.RolePlayer})
		require.NoError(t, f.rosterSvc.AddPlayer(ctx, f.roster.ID, f.manager.ID, filler.ID))
	}

	request, err := f.svc.CreateRequest(ctx, f.player.ID, f.roster.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, request.ID, f.manager.ID)
	assert.ErrorIs(t, err, ErrRosterFull)

	// Заявка осталась pending: её можно одобрить после освобождения места.
	pending, err := f.requestRepo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, pending.Status)
}

func TestRequestService_DenyDeletesRequestWithoutSideEffects(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	request, err := f.svc.CreateRequest(ctx, f.player.ID, f.roster.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Deny(ctx, request.ID, f.manager.ID))

	_, err = f.requestRepo.GetByID(ctx, request.ID)
	assert.Error(t, err)

	roster, err := f.rosterRepo.GetByID(ctx, f.roster.ID)
	require.NoError(t, err)
	assert.False(t, roster.HasPlayer(f.player.ID))

	// после отказа игрок может подать заявку снова
	_, err = f.svc.CreateRequest(ctx, f.player.ID, f.roster.ID)
	assert.NoError(t, err)
}

func TestRequestService_ListsSplitByRole(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRequest(ctx, f.player.ID, f.roster.ID)
	require.NoError(t, err)

	incoming, err := f.svc.ListByManager(ctx, f.manager.ID)
	require.NoError(t, err)
	assert.Len(t, incoming, 1)

	mine, err := f.svc.ListByUser(ctx, f.player.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	none, err := f.svc.ListByUser(ctx, f.manager.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}
