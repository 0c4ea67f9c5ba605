package crm

import (
	"context"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExpenseService_Review(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*ExpenseService, *collaboratorFixture, identity.Actor, identity.Actor, *ExpenseDTO) {
		deps := newCollaborators()
		manager := deps.users.add(t, "manager")
		rep := deps.users.add(t, "rep")
		service := NewExpenseService(newFakeExpenseRepo(), deps.deps)

		repActor := identity.NewActor(rep.ID, identity.SelfOnly(rep.ID))
		managerActor := identity.NewActor(manager.ID, identity.RestrictedTo(manager.ID, rep.ID))
		expense, err := service.Create(ctx, repActor, ExpenseInput{
			Title:      "Client dinner",
			Category:   "Meals",
			Amount:     decimal.RequireFromString("84.50"),
			Currency:   "usd",
			IncurredOn: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		return service, deps, repActor, managerActor, expense
	}

	t.Run("manager approves a report's expense", func(t *testing.T) {
		service, deps, repActor, managerActor, expense := setup(t)
		deps.notifier.On("Notify", mock.Anything, repActor.UserID, crm.NotificationExpenseReviewed, "Expense approved", mock.Anything).Return(nil)

		reviewed, err := service.Approve(ctx, managerActor, expense.ID, "ok")
		require.NoError(t, err)
		assert.Equal(t, "approved", reviewed.Status)
		require.NotNil(t, reviewed.ReviewedBy)
		assert.Equal(t, managerActor.UserID, *reviewed.ReviewedBy)
		assert.Equal(t, []string{EventExpenseReviewed}, deps.publisher.types())
		deps.notifier.AssertExpectations(t)
	})

	t.Run("submitter cannot review own expense", func(t *testing.T) {
		service, _, repActor, _, expense := setup(t)
		_, err := service.Approve(ctx, repActor, expense.ID, "")
		assertDomainCode(t, err, "SELF_REVIEW")
	})

	t.Run("rejection needs a reason", func(t *testing.T) {
		service, _, _, managerActor, expense := setup(t)
		_, err := service.Reject(ctx, managerActor, expense.ID, "  ")
		assertDomainCode(t, err, "INVALID_REVIEW_NOTE")
	})

	t.Run("reviewer outside scope sees nothing", func(t *testing.T) {
		service, deps, _, _, expense := setup(t)
		stranger := deps.users.add(t, "stranger")
		_, err := service.Approve(ctx, identity.NewActor(stranger.ID, identity.SelfOnly(stranger.ID)), expense.ID, "")
		assertDomainCode(t, err, "EXPENSE_NOT_FOUND")
	})

	t.Run("reviewed expense cannot be reviewed again", func(t *testing.T) {
		service, deps, _, managerActor, expense := setup(t)
		deps.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		_, err := service.Reject(ctx, managerActor, expense.ID, "no receipt")
		require.NoError(t, err)

		_, err = service.Approve(ctx, managerActor, expense.ID, "")
		assertDomainCode(t, err, "INVALID_STATE")
	})
}

func TestExpenseService_UpdateBySubmitterOnly(t *testing.T) {
	ctx := context.Background()
	deps := newCollaborators()
	manager := deps.users.add(t, "manager")
	rep := deps.users.add(t, "rep")
	service := NewExpenseService(newFakeExpenseRepo(), deps.deps)

	repActor := identity.NewActor(rep.ID, identity.SelfOnly(rep.ID))
	input := ExpenseInput{Title: "Taxi", Amount: decimal.NewFromInt(30), IncurredOn: time.Now()}
	expense, err := service.Create(ctx, repActor, input)
	require.NoError(t, err)
	assert.Equal(t, "other", expense.Category)

	input.Title = "Taxi to airport"
	_, err = service.Update(ctx, identity.NewActor(manager.ID, identity.Unrestricted()), expense.ID, input)
	assertDomainCode(t, err, "FORBIDDEN")

	updated, err := service.Update(ctx, repActor, expense.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Taxi to airport", updated.Title)
}
