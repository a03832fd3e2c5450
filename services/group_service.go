package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sideline-hq/sideline/models"
	"github.com/sideline-hq/sideline/repositories"
	"github.com/sideline-hq/sideline/storage"
)

type CreateGroupInput struct {
	Name               string  `json:"name"`
	Description        *string `json:"description,omitempty"`
	IsPublic           bool    `json:"is_public"`
	AssociatedRosterID *int    `json:"associated_roster_id,omitempty"`
}

type CreatePostInput struct {
	Text     string  `json:"text"`
	ImageURL *string `json:"image_url,omitempty"`
}

type GroupService interface {
	CreateGroup(ctx context.Context, creatorID int, input CreateGroupInput) (*models.Group, error)
	GetByID(ctx context.Context, groupID, currentUserID int) (*models.Group, error)
	ListMine(ctx context.Context, userID int) ([]*models.Group, error)
	ListPublic(ctx context.Context) ([]*models.Group, error)

	AddMember(ctx context.Context, groupID, actorID, targetID int) error
	RemoveMember(ctx context.Context, groupID, actorID, targetID int) error
	LeaveGroup(ctx context.Context, groupID, userID int) error
	PromoteMember(ctx context.Context, groupID, actorID, targetID int) error
	DemoteMember(ctx context.Context, groupID, actorID, targetID int) error
	TransferOwnership(ctx context.Context, groupID, actorID, targetID int) error

	CreatePost(ctx context.Context, groupID, authorID int, input CreatePostInput) (*models.GroupPost, error)
	ListPosts(ctx context.Context, groupID, currentUserID int) ([]*models.GroupPost, error)
	UploadPostImage(ctx context.Context, groupID, userID int, filename, contentType string, reader io.Reader) (string, error)
}

type groupService struct {
	groupRepo repositories.GroupRepository
	userRepo  repositories.UserRepository
	uploader  storage.FileUploader
}

func NewGroupService(
	groupRepo repositories.GroupRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
) GroupService {
	return &groupService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
		uploader:  uploader,
	}
}

func (s *groupService) CreateGroup(ctx context.Context, creatorID int, input CreateGroupInput) (*models.Group, error) {
	if input.Name == "" {
		return nil, ErrGroupNameRequired
	}

	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get creator %d: %w", creatorID, err)
	}

	ownerRecord := participantRecord(creator, s.uploader)
	ownerRecord.Role = models.GroupRoleOwner

	group := &models.Group{
		Name:               input.Name,
		Description:        input.Description,
		IsPublic:           input.IsPublic,
		MemberIDs:          []int{creatorID},
		MemberDetails:      []models.ParticipantRecord{ownerRecord},
		AssociatedRosterID: input.AssociatedRosterID,
	}

	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return group, nil
}

func (s *groupService) GetByID(ctx context.Context, groupID, currentUserID int) (*models.Group, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsPublic && group.RoleOf(currentUserID) == "" {
		return nil, ErrForbiddenOperation
	}
	return group, nil
}

func (s *groupService) ListMine(ctx context.Context, userID int) ([]*models.Group, error) {
	groups, err := s.groupRepo.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for user %d: %w", userID, err)
	}
	return groups, nil
}

func (s *groupService) ListPublic(ctx context.Context) ([]*models.Group, error) {
	groups, err := s.groupRepo.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list public groups: %w", err)
	}
	return groups, nil
}

func (s *groupService) AddMember(ctx context.Context, groupID, actorID, targetID int) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := canAddMember(group, actorID); err != nil {
		return err
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user %d: %w", targetID, err)
	}

	record := participantRecord(target, s.uploader)
	record.Role = models.GroupRoleMember

	if err := s.groupRepo.AddMember(ctx, groupID, record); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (s *groupService) RemoveMember(ctx context.Context, groupID, actorID, targetID int) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := canRemoveMember(group, actorID, targetID); err != nil {
		return err
	}

	ids, details := withoutMember(group, targetID)
	if err := s.groupRepo.UpdateMembers(ctx, groupID, ids, details); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

func (s *groupService) LeaveGroup(ctx context.Context, groupID, userID int) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	switch group.RoleOf(userID) {
	case "":
		return ErrNotGroupMember
	case models.GroupRoleOwner:
		// Владелец сначала передаёт владение.
		return ErrLastOwner
	}

	ids, details := withoutMember(group, userID)
	if err := s.groupRepo.UpdateMembers(ctx, groupID, ids, details); err != nil {
		return fmt.Errorf("failed to leave group: %w", err)
	}
	return nil
}

func (s *groupService) PromoteMember(ctx context.Context, groupID, actorID, targetID int) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := canChangeRole(group, actorID); err != nil {
		return err
	}
	if group.RoleOf(targetID) != models.GroupRoleMember {
		return ErrRoleForbidden
	}

	details := withRole(group.MemberDetails, targetID, models.GroupRoleAdmin)
	if err := s.groupRepo.UpdateMembers(ctx, groupID, group.MemberIDs, details); err != nil {
		return fmt.Errorf("failed to promote member: %w", err)
	}
	return nil
}

func (s *groupService) DemoteMember(ctx context.Context, groupID, actorID, targetID int) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := canChangeRole(group, actorID); err != nil {
		return err
	}
	switch group.RoleOf(targetID) {
	case models.GroupRoleAdmin:
	case models.GroupRoleOwner:
		return ErrLastOwner
	default:
		return ErrRoleForbidden
	}

	details := withRole(group.MemberDetails, targetID, models.GroupRoleMember)
	if err := s.groupRepo.UpdateMembers(ctx, groupID, group.MemberIDs, details); err != nil {
		return fmt.Errorf("failed to demote member: %w", err)
	}
	return nil
}

// TransferOwnership понижает текущего владельца до admin и повышает
// цель до owner одной записью состава — без окна, в котором группа
// имела бы ноль или двух владельцев.
func (s *groupService) TransferOwnership(ctx context.Context, groupID, actorID, targetID int) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.RoleOf(actorID) != models.GroupRoleOwner {
		return ErrOwnerOnly
	}
	if group.RoleOf(targetID) == "" {
		return ErrNotGroupMember
	}
	if targetID == actorID {
		return nil
	}

	details := withRole(group.MemberDetails, actorID, models.GroupRoleAdmin)
	details = withRole(details, targetID, models.GroupRoleOwner)
	if err := s.groupRepo.UpdateMembers(ctx, groupID, group.MemberIDs, details); err != nil {
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}
	return nil
}

func (s *groupService) CreatePost(ctx context.Context, groupID, authorID int, input CreatePostInput) (*models.GroupPost, error) {
	if input.Text == "" && input.ImageURL == nil {
		return nil, ErrValidationFailed
	}

	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := canPost(group, authorID); err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get author %d: %w", authorID, err)
	}
	hydratePhotoURL(author, s.uploader)

	post := &models.GroupPost{
		GroupID:     groupID,
		AuthorID:    authorID,
		AuthorName:  author.DisplayName(),
		AuthorPhoto: author.PhotoURL,
		Text:        input.Text,
		ImageURL:    input.ImageURL,
	}

	if err := s.groupRepo.CreatePost(ctx, post); err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

func (s *groupService) ListPosts(ctx context.Context, groupID, currentUserID int) ([]*models.GroupPost, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsPublic && group.RoleOf(currentUserID) == "" {
		return nil, ErrForbiddenOperation
	}

	posts, err := s.groupRepo.ListPosts(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (s *groupService) UploadPostImage(ctx context.Context, groupID, userID int, filename, contentType string, reader io.Reader) (string, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return "", err
	}
	if err := canPost(group, userID); err != nil {
		return "", err
	}

	key := storage.AttachmentKey("groups", groupID, filename, time.Now())
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return "", fmt.Errorf("failed to upload post image: %w", err)
	}
	return result.Location, nil
}

func (s *groupService) getGroup(ctx context.Context, groupID int) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group %d: %w", groupID, err)
	}
	return group, nil
}
