package crm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	objects map[string]bool
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]bool{}}
}

func (s *fakeStorage) GenerateUploadURL(_ context.Context, key, _ string, expiresIn time.Duration) (string, time.Time, error) {
	return "https://storage.test/put/" + key, time.Now().Add(expiresIn), nil
}

func (s *fakeStorage) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	return "https://storage.test/get/" + key, time.Now().Add(expiresIn), nil
}

func (s *fakeStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	return s.objects[key], nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func TestExpenseService_Receipts(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*ExpenseService, *fakeStorage, identity.Actor, identity.Actor, *ExpenseDTO) {
		deps := newCollaborators()
		deps.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
		manager := deps.users.add(t, "manager")
		rep := deps.users.add(t, "rep")
		service := NewExpenseService(newFakeExpenseRepo(), deps.deps)
		storage := newFakeStorage()
		service.SetReceiptStorage(storage, 10*time.Minute)

		repActor := identity.NewActor(rep.ID, identity.SelfOnly(rep.ID))
		managerActor := identity.NewActor(manager.ID, identity.RestrictedTo(manager.ID, rep.ID))
		expense, err := service.Create(ctx, repActor, ExpenseInput{
			Title:      "Hotel",
			Amount:     decimal.RequireFromString("120"),
			IncurredOn: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		return service, storage, repActor, managerActor, expense
	}

	t.Run("upload then confirm attaches the receipt", func(t *testing.T) {
		service, storage, repActor, managerActor, expense := setup(t)

		upload, err := service.InitiateReceiptUpload(ctx, repActor, expense.ID, "image/png")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(upload.StorageKey, "receipts/"+expense.ID.String()+"/"))
		assert.True(t, strings.HasSuffix(upload.StorageKey, ".png"))
		assert.Contains(t, upload.UploadURL, upload.StorageKey)

		_, err = service.ConfirmReceipt(ctx, repActor, expense.ID, upload.StorageKey)
		assertDomainCode(t, err, "UPLOAD_NOT_FOUND")

		storage.objects[upload.StorageKey] = true
		confirmed, err := service.ConfirmReceipt(ctx, repActor, expense.ID, upload.StorageKey)
		require.NoError(t, err)
		assert.True(t, confirmed.HasReceipt)

		link, err := service.ReceiptURL(ctx, managerActor, expense.ID)
		require.NoError(t, err)
		assert.Contains(t, link.URL, upload.StorageKey)
	})

	t.Run("replacing a receipt deletes the old object", func(t *testing.T) {
		service, storage, repActor, _, expense := setup(t)
		prefix := "receipts/" + expense.ID.String() + "/"
		first, second := prefix+"a.pdf", prefix+"b.pdf"
		storage.objects[first] = true
		storage.objects[second] = true

		_, err := service.ConfirmReceipt(ctx, repActor, expense.ID, first)
		require.NoError(t, err)
		_, err = service.ConfirmReceipt(ctx, repActor, expense.ID, second)
		require.NoError(t, err)
		assert.Equal(t, []string{first}, storage.deleted)
	})

	t.Run("keys outside the expense prefix are rejected", func(t *testing.T) {
		service, storage, repActor, _, expense := setup(t)
		foreign := "receipts/" + uuid.NewString() + "/x.pdf"
		storage.objects[foreign] = true

		_, err := service.ConfirmReceipt(ctx, repActor, expense.ID, foreign)
		assertDomainCode(t, err, "INVALID_RECEIPT")

		_, err = service.ConfirmReceipt(ctx, repActor, expense.ID, "receipts/"+expense.ID.String()+"/../x.pdf")
		assertDomainCode(t, err, "INVALID_RECEIPT")
	})

	t.Run("only the submitter uploads", func(t *testing.T) {
		service, _, _, managerActor, expense := setup(t)
		_, err := service.InitiateReceiptUpload(ctx, managerActor, expense.ID, "application/pdf")
		assertDomainCode(t, err, "FORBIDDEN")
	})

	t.Run("content type whitelist", func(t *testing.T) {
		service, _, repActor, _, expense := setup(t)
		_, err := service.InitiateReceiptUpload(ctx, repActor, expense.ID, "text/html")
		assertDomainCode(t, err, "DISALLOWED_CONTENT_TYPE")
	})

	t.Run("reviewed expenses are frozen", func(t *testing.T) {
		service, _, repActor, managerActor, expense := setup(t)
		_, err := service.Approve(ctx, managerActor, expense.ID, "")
		require.NoError(t, err)

		_, err = service.InitiateReceiptUpload(ctx, repActor, expense.ID, "image/jpeg")
		assertDomainCode(t, err, "INVALID_STATE")
	})

	t.Run("no receipt yet", func(t *testing.T) {
		service, _, repActor, _, expense := setup(t)
		_, err := service.ReceiptURL(ctx, repActor, expense.ID)
		assertDomainCode(t, err, "RECEIPT_NOT_FOUND")
	})

	t.Run("storage disabled", func(t *testing.T) {
		deps := newCollaborators()
		rep := deps.users.add(t, "rep")
		service := NewExpenseService(newFakeExpenseRepo(), deps.deps)
		_, err := service.ReceiptURL(ctx, identity.NewActor(rep.ID, identity.SelfOnly(rep.ID)), uuid.New())
		assertDomainCode(t, err, "STORAGE_DISABLED")
	})
}
