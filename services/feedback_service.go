package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sideline-hq/sideline/models"
	"github.com/sideline-hq/sideline/repositories"
)

type CreateFeedbackInput struct {
	Title       string              `json:"title"`
	Type        models.FeedbackType `json:"type"`
	Description string              `json:"description"`
}

type FeedbackService interface {
	Create(ctx context.Context, authorID int, input CreateFeedbackInput) (*models.Feedback, error)
	List(ctx context.Context) ([]*models.Feedback, error)

	// ToggleVote переключает голос: первый вызов добавляет, второй снимает.
	ToggleVote(ctx context.Context, feedbackID, userID int) (*models.Feedback, error)

	// UpdateStatus и AddDeveloperNote доступны только разработчикам.
	UpdateStatus(ctx context.Context, feedbackID, actorID int, status models.FeedbackStatus) error
	AddDeveloperNote(ctx context.Context, feedbackID, actorID int, text string) error
}

type feedbackService struct {
	feedbackRepo repositories.FeedbackRepository
	userRepo     repositories.UserRepository
}

func NewFeedbackService(feedbackRepo repositories.FeedbackRepository, userRepo repositories.UserRepository) FeedbackService {
	return &feedbackService{feedbackRepo: feedbackRepo, userRepo: userRepo}
}

func (s *feedbackService) Create(ctx context.Context, authorID int, input CreateFeedbackInput) (*models.Feedback, error) {
	if input.Title == "" || input.Description == "" {
		return nil, ErrValidationFailed
	}
	switch input.Type {
	case models.FeedbackTypeSuggestion, models.FeedbackTypeBug, models.FeedbackTypeGeneral:
	default:
		return nil, ErrValidationFailed
	}

	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get author %d: %w", authorID, err)
	}

	feedback := &models.Feedback{
		Title:       input.Title,
		Type:        input.Type,
		Description: input.Description,
		AuthorID:    authorID,
		AuthorName:  author.DisplayName(),
		Status:      models.FeedbackStatusProposed,
		VoterIDs:    []int{},
	}
	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}
	return feedback, nil
}

func (s *feedbackService) List(ctx context.Context) ([]*models.Feedback, error) {
	items, err := s.feedbackRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return items, nil
}

func (s *feedbackService) ToggleVote(ctx context.Context, feedbackID, userID int) (*models.Feedback, error) {
	feedback, err := s.feedbackRepo.ToggleVote(ctx, feedbackID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrFeedbackNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to toggle vote on feedback %d: %w", feedbackID, err)
	}
	return feedback, nil
}

func (s *feedbackService) UpdateStatus(ctx context.Context, feedbackID, actorID int, status models.FeedbackStatus) error {
	switch status {
	case models.FeedbackStatusProposed, models.FeedbackStatusAccepted, models.FeedbackStatusInProgress,
		models.FeedbackStatusCompleted, models.FeedbackStatusRejected:
	default:
		return ErrValidationFailed
	}
	if err := s.requireDeveloper(ctx, actorID); err != nil {
		return err
	}

	if err := s.feedbackRepo.UpdateStatus(ctx, feedbackID, status); err != nil {
		if errors.Is(err, repositories.ErrFeedbackNotFound) {
			return ErrFeedbackNotFound
		}
		return fmt.Errorf("failed to update feedback %d status: %w", feedbackID, err)
	}
	return nil
}

func (s *feedbackService) AddDeveloperNote(ctx context.Context, feedbackID, actorID int, text string) error {
	if text == "" {
		return ErrValidationFailed
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user %d: %w", actorID, err)
	}
	if actor.Role != models.RoleDeveloper {
		return ErrForbiddenOperation
	}

	note := models.DeveloperNote{
		Text:      text,
		Author:    actor.DisplayName(),
		CreatedAt: time.Now(),
	}
	if err := s.feedbackRepo.AddDeveloperNote(ctx, feedbackID, note); err != nil {
		if errors.Is(err, repositories.ErrFeedbackNotFound) {
			return ErrFeedbackNotFound
		}
		return fmt.Errorf("failed to add note to feedback %d: %w", feedbackID, err)
	}
	return nil
}

func (s *feedbackService) requireDeveloper(ctx context.Context, userID int) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user.Role != models.RoleDeveloper {
		return ErrForbiddenOperation
	}
	return nil
}
