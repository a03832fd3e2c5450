package services

import (
	"context"
	"testing"

	"github.com/sideline-hq/sideline/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedbackFixture struct {
	svc          FeedbackService
	feedbackRepo *fakeFeedbackRepo

	author    *models.User
	voter     *models.User
	developer *models.User
}

func newFeedbackFixture(t *testing.T) *feedbackFixture {
	t.Helper()
	userRepo := newFakeUserRepo()
	feedbackRepo := newFakeFeedbackRepo()

	f := &feedbackFixture{
		feedbackRepo: feedbackRepo,
		author:       userRepo.mustAddUser(&models.User{FirstName: "Pia", LastName: "Novak", Email: "pia@example.com", Role: models.RolePlayer}),
		voter:        userRepo.mustAddUser(&models.User{FirstName: "Bob", LastName: "Ito", Email: "bob@example.com", Role: models.RolePlayer}),
		developer:    userRepo.mustAddUser(&models.User{FirstName: "Dana", LastName: "Reyes", Email: "dana@example.com", Role: models.RoleDeveloper}),
	}
	f.svc = NewFeedbackService(feedbackRepo, userRepo)
	return f
}

func TestFeedbackService_CreateDenormalizesAuthor(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	feedback, err := f.svc.Create(ctx, f.author.ID, CreateFeedbackInput{
		Title:       "Dark theme",
		Type:        models.FeedbackTypeSuggestion,
		Description: "please add a dark theme",
	})
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackStatusProposed, feedback.Status)
	assert.Equal(t, f.author.DisplayName(), feedback.AuthorName)
	assert.Equal(t, 0, feedback.Votes)
}

func TestFeedbackService_CreateValidation(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.author.ID, CreateFeedbackInput{Type: models.FeedbackTypeBug, Description: "crash"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.Create(ctx, f.author.ID, CreateFeedbackInput{Title: "Crash", Type: models.FeedbackTypeBug})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.Create(ctx, f.author.ID, CreateFeedbackInput{Title: "Crash", Type: "rant", Description: "crash"})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestFeedbackService_ToggleVoteIsSelfInverse(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	feedback, err := f.svc.Create(ctx, f.author.ID, CreateFeedbackInput{
		Title: "Dark theme", Type: models.FeedbackTypeSuggestion, Description: "please",
	})
	require.NoError(t, err)

	voted, err := f.svc.ToggleVote(ctx, feedback.ID, f.voter.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, voted.Votes)
	assert.True(t, voted.HasVoted(f.voter.ID))

	unvoted, err := f.svc.ToggleVote(ctx, feedback.ID, f.voter.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unvoted.Votes)
	assert.False(t, unvoted.HasVoted(f.voter.ID))

	_, err = f.svc.ToggleVote(ctx, 999, f.voter.ID)
	assert.ErrorIs(t, err, ErrFeedbackNotFound)
}

func TestFeedbackService_StatusChangesAreDeveloperOnly(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	feedback, err := f.svc.Create(ctx, f.author.ID, CreateFeedbackInput{
		Title: "Crash on login", Type: models.FeedbackTypeBug, Description: "stacktrace attached",
	})
	require.NoError(t, err)

	// даже автор не двигает статус своей заявки
	err = f.svc.UpdateStatus(ctx, feedback.ID, f.author.ID, models.FeedbackStatusAccepted)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	require.NoError(t, f.svc.UpdateStatus(ctx, feedback.ID, f.developer.ID, models.FeedbackStatusInProgress))

	updated, err := f.feedbackRepo.GetByID(ctx, feedback.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackStatusInProgress, updated.Status)

	err = f.svc.UpdateStatus(ctx, feedback.ID, f.developer.ID, "archived")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestFeedbackService_DeveloperNotes(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	feedback, err := f.svc.Create(ctx, f.author.ID, CreateFeedbackInput{
		Title: "Crash on login", Type: models.FeedbackTypeBug, Description: "stacktrace attached",
	})
	require.NoError(t, err)

	err = f.svc.AddDeveloperNote(ctx, feedback.ID, f.voter.ID, "me too")
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	err = f.svc.AddDeveloperNote(ctx, feedback.ID, f.developer.ID, "")
	assert.ErrorIs(t, err, ErrValidationFailed)

	require.NoError(t, f.svc.AddDeveloperNote(ctx, feedback.ID, f.developer.ID, "reproduced, fix planned"))

	updated, err := f.feedbackRepo.GetByID(ctx, feedback.ID)
	require.NoError(t, err)
	require.Len(t, updated.DeveloperNotes, 1)
	assert.Equal(t, f.developer.DisplayName(), updated.DeveloperNotes[0].Author)
}
