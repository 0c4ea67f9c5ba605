package crm

import (
	"context"
	"errors"
	"testing"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type leadFixture struct {
	*collaboratorFixture
	leads   *fakeLeadRepo
	deals   *fakeDealRepo
	service *LeadService
	manager *identity.User
	rep     *identity.User
	other   *identity.User
}

func newLeadFixture(t *testing.T) *leadFixture {
	f := &leadFixture{
		collaboratorFixture: newCollaborators(),
		leads:               newFakeLeadRepo(),
		deals:               newFakeDealRepo(),
	}
	f.manager = f.users.add(t, "manager")
	f.rep = f.users.add(t, "rep")
	f.other = f.users.add(t, "other")
	f.service = NewLeadService(f.leads, f.deals, f.deps)
	return f
}

func (f *leadFixture) managerActor() identity.Actor {
	return identity.NewActor(f.manager.ID, identity.RestrictedTo(f.manager.ID, f.rep.ID))
}

func (f *leadFixture) repActor() identity.Actor {
	return identity.NewActor(f.rep.ID, identity.SelfOnly(f.rep.ID))
}

func TestLeadService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns to a report and notifies them", func(t *testing.T) {
		f := newLeadFixture(t)
		f.notifier.On("Notify", mock.Anything, f.rep.ID, crm.NotificationLeadAssigned, mock.Anything, mock.Anything).Return(nil)

		lead, err := f.service.Create(ctx, f.managerActor(), CreateLeadInput{
			Name:           "Jane Doe",
			Company:        "Acme",
			EstimatedValue: decimal.NewFromInt(5000),
			Currency:       "usd",
			AssignedTo:     &f.rep.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, f.rep.ID, lead.AssignedTo)
		assert.Equal(t, f.manager.ID, lead.CreatedBy)
		assert.Equal(t, "USD", lead.Currency)
		assert.Equal(t, []string{EventLeadAssigned}, f.publisher.types())
		f.notifier.AssertExpectations(t)
	})

	t.Run("rejects assignee outside scope", func(t *testing.T) {
		f := newLeadFixture(t)
		_, err := f.service.Create(ctx, f.managerActor(), CreateLeadInput{Name: "Jane", AssignedTo: &f.other.ID})
		assertDomainCode(t, err, "ASSIGNEE_NOT_VISIBLE")
		assert.Empty(t, f.leads.records)
	})

	t.Run("rejects deactivated assignee", func(t *testing.T) {
		f := newLeadFixture(t)
		require.NoError(t, f.rep.Deactivate())
		_, err := f.service.Create(ctx, f.managerActor(), CreateLeadInput{Name: "Jane", AssignedTo: &f.rep.ID})
		assertDomainCode(t, err, "ASSIGNEE_INACTIVE")
	})

	t.Run("self assignment sends nothing", func(t *testing.T) {
		f := newLeadFixture(t)
		_, err := f.service.Create(ctx, f.repActor(), CreateLeadInput{Name: "Jane"})
		require.NoError(t, err)
		assert.Empty(t, f.publisher.events)
		assert.Empty(t, f.notifier.Calls)
	})
}

func TestLeadService_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newLeadFixture(t)

	mine, err := f.service.Create(ctx, f.repActor(), CreateLeadInput{Name: "Rep lead"})
	require.NoError(t, err)
	otherActor := identity.NewActor(f.other.ID, identity.SelfOnly(f.other.ID))
	foreign, err := f.service.Create(ctx, otherActor, CreateLeadInput{Name: "Other lead"})
	require.NoError(t, err)

	got, err := f.service.GetByID(ctx, f.managerActor(), mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rep lead", got.Name)

	_, err = f.service.GetByID(ctx, f.managerActor(), foreign.ID)
	assertDomainCode(t, err, "LEAD_NOT_FOUND")

	page, err := f.service.List(ctx, f.managerActor(), crm.LeadFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	admin := identity.NewActor(f.manager.ID, identity.Unrestricted())
	page, err = f.service.List(ctx, admin, crm.LeadFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	err = f.service.Delete(ctx, f.repActor(), foreign.ID)
	assertDomainCode(t, err, "LEAD_NOT_FOUND")
}

func TestLeadService_ConvertToDeal(t *testing.T) {
	ctx := context.Background()

	t.Run("qualified lead becomes a deal", func(t *testing.T) {
		f := newLeadFixture(t)
		lead, err := f.service.Create(ctx, f.repActor(), CreateLeadInput{
			Name:           "Jane",
			Company:        "Acme",
			EstimatedValue: decimal.NewFromInt(1200),
			Currency:       "EUR",
		})
		require.NoError(t, err)
		_, err = f.service.ChangeStatus(ctx, f.repActor(), lead.ID, "qualified")
		require.NoError(t, err)

		deal, err := f.service.ConvertToDeal(ctx, f.repActor(), ConvertLeadInput{LeadID: lead.ID})
		require.NoError(t, err)
		assert.Equal(t, "Acme - Jane", deal.Title)
		assert.Equal(t, "EUR", deal.Currency)
		assert.True(t, deal.Value.Equal(decimal.NewFromInt(1200)))
		require.NotNil(t, deal.LeadID)
		assert.Equal(t, lead.ID, *deal.LeadID)

		converted, err := f.service.GetByID(ctx, f.repActor(), lead.ID)
		require.NoError(t, err)
		assert.Equal(t, "converted", converted.Status)
		assert.Equal(t, []string{EventLeadConverted}, f.publisher.types())
	})

	t.Run("unqualified lead is rejected", func(t *testing.T) {
		f := newLeadFixture(t)
		lead, err := f.service.Create(ctx, f.repActor(), CreateLeadInput{Name: "Jane"})
		require.NoError(t, err)

		_, err = f.service.ConvertToDeal(ctx, f.repActor(), ConvertLeadInput{LeadID: lead.ID})
		assertDomainCode(t, err, "INVALID_STATE")
		assert.Empty(t, f.deals.records)
	})

	t.Run("deal storage failure is reported", func(t *testing.T) {
		f := newLeadFixture(t)
		lead, err := f.service.Create(ctx, f.repActor(), CreateLeadInput{Name: "Jane"})
		require.NoError(t, err)
		_, err = f.service.ChangeStatus(ctx, f.repActor(), lead.ID, "qualified")
		require.NoError(t, err)
		f.deals.failCreate = errors.New("connection reset")

		_, err = f.service.ConvertToDeal(ctx, f.repActor(), ConvertLeadInput{LeadID: lead.ID})
		assertDomainCode(t, err, "INTERNAL_ERROR")
		assert.Empty(t, f.deals.records)
		assert.Empty(t, f.publisher.events)
	})
}
