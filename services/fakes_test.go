package services

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sideline-hq/sideline/models"
	"github.com/sideline-hq/sideline/repositories"
	"github.com/sideline-hq/sideline/storage"
)

// In-memory реализации репозиториев для юнит-тестов сервисов.
// Семантика мутаций повторяет postgres-реализации: идемпотентные
// добавления, атомарные переключения, охрана вместимости.

type fakeUploader struct{}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, _ io.Reader) (*storage.UploadResult, error) {
	return &storage.UploadResult{Key: key, Location: "https://cdn.test/" + key}, nil
}

func (f *fakeUploader) Delete(_ context.Context, _ string) error { return nil }

func (f *fakeUploader) GetPublicURL(key string) string { return "https://cdn.test/" + key }

// ---- users ----

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*models.User
	sports map[int][]*models.SportDetail
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User), sports: make(map[int][]*models.SportDetail)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) UpdateEmail(_ context.Context, id int, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for otherID, other := range f.users {
		if otherID != id && other.Email == email {
			return repositories.ErrUserEmailConflict
		}
	}
	user, ok := f.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.Email = email
	return nil
}

func (f *fakeUserRepo) UpdatePhotoKey(_ context.Context, id int, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.PhotoKey = &key
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) UpsertSportDetail(_ context.Context, detail *models.SportDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.sports[detail.UserID] {
		if existing.Sport == detail.Sport {
			copied := *detail
			f.sports[detail.UserID][i] = &copied
			return nil
		}
	}
	copied := *detail
	f.sports[detail.UserID] = append(f.sports[detail.UserID], &copied)
	return nil
}

func (f *fakeUserRepo) GetSportDetail(_ context.Context, userID int, sport string) (*models.SportDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, detail := range f.sports[userID] {
		if detail.Sport == sport {
			copied := *detail
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) ListSportDetails(_ context.Context, userID int) ([]*models.SportDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.SportDetail, 0, len(f.sports[userID]))
	for _, detail := range f.sports[userID] {
		copied := *detail
		out = append(out, &copied)
	}
	return out, nil
}

// mustAddUser — шорткат для подготовки тестовых данных.
func (f *fakeUserRepo) mustAddUser(user *models.User) *models.User {
	if err := f.Create(context.Background(), user); err != nil {
		panic(err)
	}
	return user
}

// ---- chats ----

type fakeChatRepo struct {
	mu     sync.Mutex
	nextID int
	chats  map[int]*models.Chat

	// updateRecordErr инжектирует сбой UpdateParticipantRecord по chatID.
	updateRecordErr map[int]error
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{chats: make(map[int]*models.Chat), updateRecordErr: make(map[int]error)}
}

func copyChat(c *models.Chat) *models.Chat {
	copied := *c
	copied.ParticipantIDs = append([]int(nil), c.ParticipantIDs...)
	copied.VisibleTo = append([]int(nil), c.VisibleTo...)
	copied.ParticipantDetails = append([]models.ParticipantRecord(nil), c.ParticipantDetails...)
	copied.UnreadCounts = make(map[int]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		copied.UnreadCounts[k] = v
	}
	copied.HiddenHistory = make(map[int]time.Time, len(c.HiddenHistory))
	for k, v := range c.HiddenHistory {
		copied.HiddenHistory[k] = v
	}
	return &copied
}

func (f *fakeChatRepo) Create(_ context.Context, chat *models.Chat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	chat.ID = f.nextID
	chat.CreatedAt = time.Now()
	f.chats[chat.ID] = copyChat(chat)
	return nil
}

func (f *fakeChatRepo) GetByID(_ context.Context, id int) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[id]
	if !ok {
		return nil, repositories.ErrChatNotFound
	}
	return copyChat(chat), nil
}

func (f *fakeChatRepo) GetByRosterID(_ context.Context, rosterID int) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, chat := range f.chats {
		if chat.Type == models.ChatTypeRoster && chat.RosterID != nil && *chat.RosterID == rosterID {
			return copyChat(chat), nil
		}
	}
	return nil, repositories.ErrChatNotFound
}

func (f *fakeChatRepo) FindDirect(_ context.Context, userA, userB int) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, chat := range f.chats {
		if chat.Type != models.ChatTypeDM || len(chat.ParticipantIDs) != 2 {
			continue
		}
		if chat.HasParticipant(userA) && chat.HasParticipant(userB) {
			return copyChat(chat), nil
		}
	}
	return nil, repositories.ErrChatNotFound
}

func (f *fakeChatRepo) ListVisibleTo(_ context.Context, userID int) ([]*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Chat, 0)
	for _, chat := range f.chats {
		if chat.IsVisibleTo(userID) {
			out = append(out, copyChat(chat))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeChatRepo) ListIDsByParticipant(_ context.Context, userID int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0)
	for _, chat := range f.chats {
		if chat.HasParticipant(userID) {
			ids = append(ids, chat.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (f *fakeChatRepo) AddParticipant(_ context.Context, chatID int, record models.ParticipantRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatID]
	if !ok {
		return repositories.ErrChatNotFound
	}
	if !chat.HasParticipant(record.UserID) {
		chat.ParticipantIDs = append(chat.ParticipantIDs, record.UserID)
		chat.ParticipantDetails = append(chat.ParticipantDetails, record)
	}
	if !chat.IsVisibleTo(record.UserID) {
		chat.VisibleTo = append(chat.VisibleTo, record.UserID)
	}
	if chat.UnreadCounts == nil {
		chat.UnreadCounts = make(map[int]int)
	}
	if _, ok := chat.UnreadCounts[record.UserID]; !ok {
		chat.UnreadCounts[record.UserID] = 0
	}
	return nil
}

func (f *fakeChatRepo) RemoveParticipant(_ context.Context, chatID, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatID]
	if !ok {
		return repositories.ErrChatNotFound
	}
	chat.ParticipantIDs = removeInt(chat.ParticipantIDs, userID)
	chat.VisibleTo = removeInt(chat.VisibleTo, userID)
	details := chat.ParticipantDetails[:0]
	for _, d := range chat.ParticipantDetails {
		if d.UserID != userID {
			details = append(details, d)
		}
	}
	chat.ParticipantDetails = details
	delete(chat.UnreadCounts, userID)
	delete(chat.HiddenHistory, userID)
	return nil
}

func (f *fakeChatRepo) Hide(_ context.Context, chatID, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatID]
	if !ok {
		return repositories.ErrChatNotFound
	}
	chat.VisibleTo = removeInt(chat.VisibleTo, userID)
	return nil
}

func (f *fakeChatRepo) Unhide(_ context.Context, chatID, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatID]
	if !ok {
		return repositories.ErrChatNotFound
	}
	if chat.HasParticipant(userID) && !chat.IsVisibleTo(userID) {
		chat.VisibleTo = append(chat.VisibleTo, userID)
	}
	return nil
}

func (f *fakeChatRepo) MarkRead(_ context.Context, chatID, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatID]
	if !ok {
		return repositories.ErrChatNotFound
	}
	if chat.UnreadCounts == nil {
		chat.UnreadCounts = make(map[int]int)
	}
	chat.UnreadCounts[userID] = 0
	return nil
}

func (f *fakeChatRepo) SetHistoryCutoff(_ context.Context, chatID, userID int, cutoff time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatID]
	if !ok {
		return repositories.ErrChatNotFound
	}
	if chat.HiddenHistory == nil {
		chat.HiddenHistory = make(map[int]time.Time)
	}
	chat.HiddenHistory[userID] = cutoff
	return nil
}

func (f *fakeChatRepo) UpdateParticipantRecord(_ context.Context, chatID int, record models.ParticipantRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.updateRecordErr[chatID]; ok {
		return err
	}
	chat, ok := f.chats[chatID]
	if !ok {
		return repositories.ErrChatNotFound
	}
	for i := range chat.ParticipantDetails {
		if chat.ParticipantDetails[i].UserID == record.UserID {
			chat.ParticipantDetails[i] = record
		}
	}
	return nil
}

func (f *fakeChatRepo) DemoteRosterChat(_ context.Context, chatID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatID]
	if !ok {
		return repositories.ErrChatNotFound
	}
	chat.Type = models.ChatTypeGroup
	chat.RosterID = nil
	return nil
}

// ---- messages ----

// fakeMessageRepo повторяет транзакционную семантику Append: вставка
// сообщения, превью и инкременты непрочитанного применяются вместе.
type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   int
	messages []*models.Message
	chats    *fakeChatRepo

	appendErr error
}

func newFakeMessageRepo(chats *fakeChatRepo) *fakeMessageRepo {
	return &fakeMessageRepo{chats: chats}
}

func (f *fakeMessageRepo) Append(_ context.Context, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}

	f.chats.mu.Lock()
	chat, ok := f.chats.chats[message.ChatID]
	if !ok {
		f.chats.mu.Unlock()
		return repositories.ErrChatNotFound
	}

	f.nextID++
	message.ID = f.nextID
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	copied := *message
	f.messages = append(f.messages, &copied)

	preview := message.Preview()
	chat.LastMessage = &preview
	chat.LastMessageTime = &message.CreatedAt
	for userID := range chat.UnreadCounts {
		if userID != message.SenderID {
			chat.UnreadCounts[userID]++
		}
	}
	f.chats.mu.Unlock()
	return nil
}

func (f *fakeMessageRepo) ListByChat(_ context.Context, chatID int, since *time.Time, limit int) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Message, 0)
	for _, message := range f.messages {
		if message.ChatID != chatID {
			continue
		}
		if since != nil && message.CreatedAt.Before(*since) {
			continue
		}
		copied := *message
		out = append(out, &copied)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ---- rosters ----

type fakeRosterRepo struct {
	mu      sync.Mutex
	nextID  int
	rosters map[int]*models.Roster
	events  []*models.RosterEvent

	updateRecordErr map[int]error
}

func newFakeRosterRepo() *fakeRosterRepo {
	return &fakeRosterRepo{rosters: make(map[int]*models.Roster), updateRecordErr: make(map[int]error)}
}

func copyRoster(r *models.Roster) *models.Roster {
	copied := *r
	copied.PlayerIDs = append([]int(nil), r.PlayerIDs...)
	copied.Players = append([]models.ParticipantRecord(nil), r.Players...)
	return &copied
}

func (f *fakeRosterRepo) Create(_ context.Context, roster *models.Roster) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	roster.ID = f.nextID
	roster.CreatedAt = time.Now()
	f.rosters[roster.ID] = copyRoster(roster)
	return nil
}

func (f *fakeRosterRepo) GetByID(_ context.Context, id int) (*models.Roster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	roster, ok := f.rosters[id]
	if !ok {
		return nil, repositories.ErrRosterNotFound
	}
	return copyRoster(roster), nil
}

func (f *fakeRosterRepo) Update(_ context.Context, roster *models.Roster) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.rosters[roster.ID]
	if !ok {
		return repositories.ErrRosterNotFound
	}
	stored.Name = roster.Name
	stored.Season = roster.Season
	stored.MaxCapacity = roster.MaxCapacity
	stored.IsDiscoverable = roster.IsDiscoverable
	stored.LeagueID = roster.LeagueID
	stored.TargetPlayerCount = roster.TargetPlayerCount
	return nil
}

func (f *fakeRosterRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rosters[id]; !ok {
		return repositories.ErrRosterNotFound
	}
	delete(f.rosters, id)
	return nil
}

func (f *fakeRosterRepo) ListDiscoverable(_ context.Context) ([]*models.Roster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Roster, 0)
	for _, roster := range f.rosters {
		if roster.IsDiscoverable {
			out = append(out, copyRoster(roster))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRosterRepo) ListByPlayer(_ context.Context, userID int) ([]*models.Roster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Roster, 0)
	for _, roster := range f.rosters {
		if roster.HasPlayer(userID) {
			out = append(out, copyRoster(roster))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRosterRepo) ListByManager(_ context.Context, userID int) ([]*models.Roster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Roster, 0)
	for _, roster := range f.rosters {
		if roster.CreatedBy == userID {
			out = append(out, copyRoster(roster))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRosterRepo) ListIDsByPlayer(_ context.Context, userID int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0)
	for _, roster := range f.rosters {
		if roster.HasPlayer(userID) {
			ids = append(ids, roster.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (f *fakeRosterRepo) AddPlayer(_ context.Context, rosterID int, record models.ParticipantRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	roster, ok := f.rosters[rosterID]
	if !ok {
		return repositories.ErrRosterNotFound
	}
	if roster.HasPlayer(record.UserID) {
		return nil
	}
	if len(roster.PlayerIDs) >= roster.MaxCapacity {
		return repositories.ErrRosterFull
	}
	roster.PlayerIDs = append(roster.PlayerIDs, record.UserID)
	roster.Players = append(roster.Players, record)
	return nil
}

func (f *fakeRosterRepo) RemovePlayer(_ context.Context, rosterID, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	roster, ok := f.rosters[rosterID]
	if !ok {
		return repositories.ErrRosterNotFound
	}
	roster.PlayerIDs = removeInt(roster.PlayerIDs, userID)
	players := roster.Players[:0]
	for _, p := range roster.Players {
		if p.UserID != userID {
			players = append(players, p)
		}
	}
	roster.Players = players
	return nil
}

func (f *fakeRosterRepo) UpdatePlayerRecord(_ context.Context, rosterID int, record models.ParticipantRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.updateRecordErr[rosterID]; ok {
		return err
	}
	roster, ok := f.rosters[rosterID]
	if !ok {
		return repositories.ErrRosterNotFound
	}
	for i := range roster.Players {
		if roster.Players[i].UserID == record.UserID {
			roster.Players[i] = record
		}
	}
	return nil
}

func (f *fakeRosterRepo) ListInconsistentIDs(_ context.Context) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0)
	for _, roster := range f.rosters {
		fromPlayers := make([]int, 0, len(roster.Players))
		for _, p := range roster.Players {
			fromPlayers = append(fromPlayers, p.UserID)
		}
		sort.Ints(fromPlayers)
		index := append([]int(nil), roster.PlayerIDs...)
		sort.Ints(index)
		if !equalInts(fromPlayers, index) {
			ids = append(ids, roster.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (f *fakeRosterRepo) RepairPlayerIDs(_ context.Context, rosterID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	roster, ok := f.rosters[rosterID]
	if !ok {
		return repositories.ErrRosterNotFound
	}
	ids := make([]int, 0, len(roster.Players))
	for _, p := range roster.Players {
		ids = append(ids, p.UserID)
	}
	roster.PlayerIDs = ids
	return nil
}

func (f *fakeRosterRepo) CreateEvent(_ context.Context, event *models.RosterEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rosters[event.RosterID]; !ok {
		return repositories.ErrRosterNotFound
	}
	event.ID = len(f.events) + 1
	event.CreatedAt = time.Now()
	copied := *event
	f.events = append(f.events, &copied)
	return nil
}

func (f *fakeRosterRepo) ListEvents(_ context.Context, rosterID int) ([]*models.RosterEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.RosterEvent, 0)
	for _, event := range f.events {
		if event.RosterID == rosterID {
			copied := *event
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ---- groups ----

type fakeGroupRepo struct {
	mu     sync.Mutex
	nextID int
	groups map[int]*models.Group
	posts  []*models.GroupPost

	updateRecordErr map[int]error
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[int]*models.Group), updateRecordErr: make(map[int]error)}
}

func copyGroup(g *models.Group) *models.Group {
	copied := *g
	copied.MemberIDs = append([]int(nil), g.MemberIDs...)
	copied.MemberDetails = append([]models.ParticipantRecord(nil), g.MemberDetails...)
	return &copied
}

func (f *fakeGroupRepo) Create(_ context.Context, group *models.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	group.ID = f.nextID
	group.CreatedAt = time.Now()
	f.groups[group.ID] = copyGroup(group)
	return nil
}

func (f *fakeGroupRepo) GetByID(_ context.Context, id int) (*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	group, ok := f.groups[id]
	if !ok {
		return nil, repositories.ErrGroupNotFound
	}
	return copyGroup(group), nil
}

func (f *fakeGroupRepo) GetByRosterID(_ context.Context, rosterID int) (*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, group := range f.groups {
		if group.AssociatedRosterID != nil && *group.AssociatedRosterID == rosterID {
			return copyGroup(group), nil
		}
	}
	return nil, repositories.ErrGroupNotFound
}

func (f *fakeGroupRepo) Update(_ context.Context, group *models.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.groups[group.ID]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	stored.Name = group.Name
	stored.Description = group.Description
	stored.IsPublic = group.IsPublic
	return nil
}

func (f *fakeGroupRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.groups[id]; !ok {
		return repositories.ErrGroupNotFound
	}
	delete(f.groups, id)
	return nil
}

func (f *fakeGroupRepo) ListByMember(_ context.Context, userID int) ([]*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Group, 0)
	for _, group := range f.groups {
		if group.RoleOf(userID) != "" {
			out = append(out, copyGroup(group))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeGroupRepo) ListPublic(_ context.Context) ([]*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Group, 0)
	for _, group := range f.groups {
		if group.IsPublic {
			out = append(out, copyGroup(group))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeGroupRepo) ListIDsByMember(_ context.Context, userID int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0)
	for _, group := range f.groups {
		if group.RoleOf(userID) != "" {
			ids = append(ids, group.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (f *fakeGroupRepo) UpdateMembers(_ context.Context, groupID int, memberIDs []int, details []models.ParticipantRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	group, ok := f.groups[groupID]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	group.MemberIDs = append([]int(nil), memberIDs...)
	group.MemberDetails = append([]models.ParticipantRecord(nil), details...)
	return nil
}

func (f *fakeGroupRepo) AddMember(_ context.Context, groupID int, record models.ParticipantRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	group, ok := f.groups[groupID]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	if group.RoleOf(record.UserID) != "" {
		return nil
	}
	group.MemberIDs = append(group.MemberIDs, record.UserID)
	group.MemberDetails = append(group.MemberDetails, record)
	return nil
}

func (f *fakeGroupRepo) UpdateMemberRecord(_ context.Context, groupID int, record models.ParticipantRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.updateRecordErr[groupID]; ok {
		return err
	}
	group, ok := f.groups[groupID]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	for i := range group.MemberDetails {
		if group.MemberDetails[i].UserID == record.UserID {
			role := group.MemberDetails[i].Role
			group.MemberDetails[i] = record
			group.MemberDetails[i].Role = role
		}
	}
	return nil
}

func (f *fakeGroupRepo) CreatePost(_ context.Context, post *models.GroupPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.groups[post.GroupID]; !ok {
		return repositories.ErrGroupNotFound
	}
	post.ID = len(f.posts) + 1
	post.CreatedAt = time.Now()
	copied := *post
	f.posts = append(f.posts, &copied)
	return nil
}

func (f *fakeGroupRepo) ListPosts(_ context.Context, groupID int) ([]*models.GroupPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.GroupPost, 0)
	for _, post := range f.posts {
		if post.GroupID == groupID {
			copied := *post
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ---- requests ----

type fakeRequestRepo struct {
	mu       sync.Mutex
	nextID   int
	requests map[int]*models.RosterRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[int]*models.RosterRequest)}
}

func (f *fakeRequestRepo) Create(_ context.Context, request *models.RosterRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.requests {
		if existing.RosterID == request.RosterID && existing.UserID == request.UserID {
			return repositories.ErrRequestConflict
		}
	}
	f.nextID++
	request.ID = f.nextID
	request.CreatedAt = time.Now()
	copied := *request
	f.requests[request.ID] = &copied
	return nil
}

func (f *fakeRequestRepo) GetByID(_ context.Context, id int) (*models.RosterRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil, repositories.ErrRequestNotFound
	}
	copied := *request
	return &copied, nil
}

func (f *fakeRequestRepo) ListByManager(_ context.Context, managerID int) ([]*models.RosterRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.RosterRequest, 0)
	for _, request := range f.requests {
		if request.ManagerID == managerID {
			copied := *request
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRequestRepo) ListByUser(_ context.Context, userID int) ([]*models.RosterRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.RosterRequest, 0)
	for _, request := range f.requests {
		if request.UserID == userID {
			copied := *request
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRequestRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[id]; !ok {
		return repositories.ErrRequestNotFound
	}
	delete(f.requests, id)
	return nil
}

// ---- feedback ----

type fakeFeedbackRepo struct {
	mu     sync.Mutex
	nextID int
	items  map[int]*models.Feedback
}

func newFakeFeedbackRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{items: make(map[int]*models.Feedback)}
}

func copyFeedback(fb *models.Feedback) *models.Feedback {
	copied := *fb
	copied.VoterIDs = append([]int(nil), fb.VoterIDs...)
	copied.DeveloperNotes = append([]models.DeveloperNote(nil), fb.DeveloperNotes...)
	return &copied
}

func (f *fakeFeedbackRepo) Create(_ context.Context, feedback *models.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	feedback.ID = f.nextID
	feedback.CreatedAt = time.Now()
	f.items[feedback.ID] = copyFeedback(feedback)
	return nil
}

func (f *fakeFeedbackRepo) GetByID(_ context.Context, id int) (*models.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	feedback, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrFeedbackNotFound
	}
	return copyFeedback(feedback), nil
}

func (f *fakeFeedbackRepo) List(_ context.Context) ([]*models.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Feedback, 0, len(f.items))
	for _, feedback := range f.items {
		out = append(out, copyFeedback(feedback))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeFeedbackRepo) UpdateStatus(_ context.Context, id int, status models.FeedbackStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	feedback, ok := f.items[id]
	if !ok {
		return repositories.ErrFeedbackNotFound
	}
	feedback.Status = status
	return nil
}

func (f *fakeFeedbackRepo) AddDeveloperNote(_ context.Context, id int, note models.DeveloperNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	feedback, ok := f.items[id]
	if !ok {
		return repositories.ErrFeedbackNotFound
	}
	feedback.DeveloperNotes = append(feedback.DeveloperNotes, note)
	return nil
}

func (f *fakeFeedbackRepo) ToggleVote(_ context.Context, id, userID int) (*models.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	feedback, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrFeedbackNotFound
	}
	if feedback.HasVoted(userID) {
		feedback.VoterIDs = removeInt(feedback.VoterIDs, userID)
		feedback.Votes--
	} else {
		feedback.VoterIDs = append(feedback.VoterIDs, userID)
		feedback.Votes++
	}
	return copyFeedback(feedback), nil
}

// ---- helpers ----

func removeInt(ids []int, target int) []int {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
