package crm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore keeps records by ID and filters them by their owners
type memStore[T any] struct {
	records map[uuid.UUID]T
	id      func(T) uuid.UUID
	owners  func(T) []uuid.UUID
}

func newMemStore[T any](id func(T) uuid.UUID, owners func(T) []uuid.UUID) *memStore[T] {
	return &memStore[T]{records: make(map[uuid.UUID]T), id: id, owners: owners}
}

func (s *memStore[T]) put(record T) { s.records[s.id(record)] = record }

func (s *memStore[T]) update(record T) error {
	if _, ok := s.records[s.id(record)]; !ok {
		return shared.ErrNotFound
	}
	s.put(record)
	return nil
}

func (s *memStore[T]) find(scope identity.AccessScope, id uuid.UUID) (T, error) {
	record, ok := s.records[id]
	if !ok || !scope.ContainsAny(s.owners(record)...) {
		var zero T
		return zero, shared.ErrNotFound
	}
	return record, nil
}

func (s *memStore[T]) remove(scope identity.AccessScope, id uuid.UUID) error {
	if _, err := s.find(scope, id); err != nil {
		return err
	}
	delete(s.records, id)
	return nil
}

func (s *memStore[T]) all(scope identity.AccessScope) []T {
	var out []T
	for _, record := range s.records {
		if scope.ContainsAny(s.owners(record)...) {
			out = append(out, record)
		}
	}
	return out
}

type fakeLeadRepo struct {
	*memStore[*crm.Lead]
	// failBatchAt makes CreateBatch fail at that index, leaving the store untouched
	failBatchAt int
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{memStore: newMemStore(
		func(l *crm.Lead) uuid.UUID { return l.ID },
		func(l *crm.Lead) []uuid.UUID { return []uuid.UUID{l.AssignedTo, l.CreatedBy} },
	), failBatchAt: -1}
}

func (r *fakeLeadRepo) Create(_ context.Context, lead *crm.Lead) error { r.put(lead); return nil }
func (r *fakeLeadRepo) CreateBatch(_ context.Context, leads []*crm.Lead) error {
	staged := make([]*crm.Lead, 0, len(leads))
	for i, lead := range leads {
		if i == r.failBatchAt {
			return errors.New("connection reset")
		}
		staged = append(staged, lead)
	}
	for _, lead := range staged {
		r.put(lead)
	}
	return nil
}
func (r *fakeLeadRepo) Update(_ context.Context, lead *crm.Lead) error { return r.update(lead) }
func (r *fakeLeadRepo) Delete(_ context.Context, scope identity.AccessScope, id uuid.UUID) error {
	return r.remove(scope, id)
}
func (r *fakeLeadRepo) FindByID(_ context.Context, scope identity.AccessScope, id uuid.UUID) (*crm.Lead, error) {
	return r.find(scope, id)
}
func (r *fakeLeadRepo) FindAll(_ context.Context, scope identity.AccessScope, _ crm.LeadFilter) ([]*crm.Lead, int64, error) {
	out := r.all(scope)
	return out, int64(len(out)), nil
}
func (r *fakeLeadRepo) CountByStatus(_ context.Context, scope identity.AccessScope, _, _ time.Time) (map[crm.LeadStatus]int64, error) {
	counts := make(map[crm.LeadStatus]int64)
	for _, lead := range r.all(scope) {
		counts[lead.Status]++
	}
	return counts, nil
}

type fakeDealRepo struct {
	*memStore[*crm.Deal]
	failCreate error
}

func newFakeDealRepo() *fakeDealRepo {
	return &fakeDealRepo{memStore: newMemStore(
		func(d *crm.Deal) uuid.UUID { return d.ID },
		func(d *crm.Deal) []uuid.UUID { return []uuid.UUID{d.AssignedTo, d.CreatedBy} },
	)}
}

func (r *fakeDealRepo) Create(_ context.Context, deal *crm.Deal) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.put(deal)
	return nil
}
func (r *fakeDealRepo) Update(_ context.Context, deal *crm.Deal) error { return r.update(deal) }
func (r *fakeDealRepo) Delete(_ context.Context, scope identity.AccessScope, id uuid.UUID) error {
	return r.remove(scope, id)
}
func (r *fakeDealRepo) FindByID(_ context.Context, scope identity.AccessScope, id uuid.UUID) (*crm.Deal, error) {
	return r.find(scope, id)
}
func (r *fakeDealRepo) FindAll(_ context.Context, scope identity.AccessScope, _ crm.DealFilter) ([]*crm.Deal, int64, error) {
	out := r.all(scope)
	return out, int64(len(out)), nil
}
func (r *fakeDealRepo) FindForReport(_ context.Context, scope identity.AccessScope, _, _ time.Time) ([]*crm.Deal, error) {
	return r.all(scope), nil
}

type fakeExpenseRepo struct{ *memStore[*crm.Expense] }

func newFakeExpenseRepo() *fakeExpenseRepo {
	return &fakeExpenseRepo{newMemStore(
		func(e *crm.Expense) uuid.UUID { return e.ID },
		func(e *crm.Expense) []uuid.UUID { return []uuid.UUID{e.SubmittedBy} },
	)}
}

func (r *fakeExpenseRepo) Create(_ context.Context, e *crm.Expense) error { r.put(e); return nil }
func (r *fakeExpenseRepo) Update(_ context.Context, e *crm.Expense) error { return r.update(e) }
func (r *fakeExpenseRepo) Delete(_ context.Context, scope identity.AccessScope, id uuid.UUID) error {
	return r.remove(scope, id)
}
func (r *fakeExpenseRepo) FindByID(_ context.Context, scope identity.AccessScope, id uuid.UUID) (*crm.Expense, error) {
	return r.find(scope, id)
}
func (r *fakeExpenseRepo) FindAll(_ context.Context, scope identity.AccessScope, _ crm.ExpenseFilter) ([]*crm.Expense, int64, error) {
	out := r.all(scope)
	return out, int64(len(out)), nil
}
func (r *fakeExpenseRepo) FindApprovedForReport(_ context.Context, scope identity.AccessScope, _, _ time.Time) ([]*crm.Expense, error) {
	var out []*crm.Expense
	for _, e := range r.all(scope) {
		if e.Status == crm.ExpenseStatusApproved {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeInvoiceRepo struct {
	*memStore[*crm.Invoice]
	seq int
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{memStore: newMemStore(
		func(i *crm.Invoice) uuid.UUID { return i.ID },
		func(i *crm.Invoice) []uuid.UUID { return []uuid.UUID{i.CreatedBy} },
	)}
}

func (r *fakeInvoiceRepo) Create(_ context.Context, i *crm.Invoice) error {
	for _, existing := range r.records {
		if existing.Number == i.Number {
			return shared.ErrAlreadyExists
		}
	}
	r.put(i)
	return nil
}
func (r *fakeInvoiceRepo) Update(_ context.Context, i *crm.Invoice) error { return r.update(i) }
func (r *fakeInvoiceRepo) Delete(_ context.Context, scope identity.AccessScope, id uuid.UUID) error {
	return r.remove(scope, id)
}
func (r *fakeInvoiceRepo) FindByID(_ context.Context, scope identity.AccessScope, id uuid.UUID) (*crm.Invoice, error) {
	return r.find(scope, id)
}
func (r *fakeInvoiceRepo) FindAll(_ context.Context, scope identity.AccessScope, _ crm.DocumentFilter) ([]*crm.Invoice, int64, error) {
	out := r.all(scope)
	return out, int64(len(out)), nil
}
func (r *fakeInvoiceRepo) FindPaidForReport(_ context.Context, scope identity.AccessScope, _, _ time.Time) ([]*crm.Invoice, error) {
	return r.all(scope), nil
}
func (r *fakeInvoiceRepo) NextNumber(_ context.Context, prefix string) (string, error) {
	r.seq++
	return fmt.Sprintf("%s%05d", prefix, r.seq), nil
}

type fakeQuotationRepo struct {
	*memStore[*crm.Quotation]
	seq int
}

func newFakeQuotationRepo() *fakeQuotationRepo {
	return &fakeQuotationRepo{memStore: newMemStore(
		func(q *crm.Quotation) uuid.UUID { return q.ID },
		func(q *crm.Quotation) []uuid.UUID { return []uuid.UUID{q.CreatedBy} },
	)}
}

func (r *fakeQuotationRepo) Create(_ context.Context, q *crm.Quotation) error {
	for _, existing := range r.records {
		if existing.Number == q.Number {
			return shared.ErrAlreadyExists
		}
	}
	r.put(q)
	return nil
}
func (r *fakeQuotationRepo) Update(_ context.Context, q *crm.Quotation) error { return r.update(q) }
func (r *fakeQuotationRepo) Delete(_ context.Context, scope identity.AccessScope, id uuid.UUID) error {
	return r.remove(scope, id)
}
func (r *fakeQuotationRepo) FindByID(_ context.Context, scope identity.AccessScope, id uuid.UUID) (*crm.Quotation, error) {
	return r.find(scope, id)
}
func (r *fakeQuotationRepo) FindAll(_ context.Context, scope identity.AccessScope, _ crm.DocumentFilter) ([]*crm.Quotation, int64, error) {
	out := r.all(scope)
	return out, int64(len(out)), nil
}
func (r *fakeQuotationRepo) NextNumber(_ context.Context, prefix string) (string, error) {
	r.seq++
	return fmt.Sprintf("%s%05d", prefix, r.seq), nil
}

// fakeSettingsRepo has nothing stored, so services fall back to the defaults
type fakeSettingsRepo struct{ saved *crm.BusinessSettings }

func (r *fakeSettingsRepo) Get(context.Context) (*crm.BusinessSettings, error) {
	if r.saved == nil {
		return nil, shared.ErrNotFound
	}
	return r.saved, nil
}

func (r *fakeSettingsRepo) Save(_ context.Context, settings *crm.BusinessSettings) error {
	r.saved = settings
	return nil
}

type fakeDirectory map[uuid.UUID]*identity.User

func (d fakeDirectory) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if user, ok := d[id]; ok {
		return user, nil
	}
	return nil, shared.ErrNotFound
}

func (d fakeDirectory) add(t *testing.T, username string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(username, username+"@example.com", "secret123")
	require.NoError(t, err)
	d[user.ID] = user
	return user
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID uuid.UUID, kind crm.NotificationKind, title, body string) error {
	args := m.Called(ctx, userID, kind, title, body)
	return args.Error(0)
}

// recordingPublisher collects published events
type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type collaboratorFixture struct {
	deps      Collaborators
	users     fakeDirectory
	notifier  *MockNotifier
	publisher *recordingPublisher
}

func newCollaborators() *collaboratorFixture {
	f := &collaboratorFixture{
		users:     fakeDirectory{},
		notifier:  new(MockNotifier),
		publisher: &recordingPublisher{},
	}
	f.deps = Collaborators{
		Users:     f.users,
		Notifier:  f.notifier,
		Publisher: f.publisher,
		Logger:    zap.NewNop(),
	}
	return f
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, code, domainErr.Code)
}
