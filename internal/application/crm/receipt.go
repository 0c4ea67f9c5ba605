package crm

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// receiptContentTypes maps the accepted receipt content types to file extensions
var receiptContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/heic":      ".heic",
}

// SetReceiptStorage enables receipt attachments. URLs expire after urlExpiry.
func (s *ExpenseService) SetReceiptStorage(storage ObjectStorage, urlExpiry time.Duration) {
	s.storage = storage
	s.urlExpiry = urlExpiry
}

// receiptPrefix scopes storage keys to one expense
func receiptPrefix(expenseID uuid.UUID) string {
	return "receipts/" + expenseID.String() + "/"
}

// InitiateReceiptUpload returns a presigned URL the submitter uploads the receipt to.
// The receipt is attached by ConfirmReceipt once the object exists.
func (s *ExpenseService) InitiateReceiptUpload(ctx context.Context, actor identity.Actor, id uuid.UUID, contentType string) (*ReceiptUploadDTO, error) {
	if s.storage == nil {
		return nil, shared.NewDomainError("STORAGE_DISABLED", "Receipt storage is not configured")
	}
	ext, ok := receiptContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, shared.NewDomainError("DISALLOWED_CONTENT_TYPE", "Receipts must be PDF, JPEG, PNG, WebP or HEIC")
	}
	expense, err := s.submittedExpense(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if expense.Status != crm.ExpenseStatusPending {
		return nil, shared.NewDomainError("INVALID_STATE", "Receipts can only be attached to pending expenses")
	}

	key := receiptPrefix(expense.ID) + uuid.NewString() + ext
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, contentType, s.urlExpiry)
	if err != nil {
		s.logger.Error("Failed to presign receipt upload", zap.String("expense_id", id.String()), zap.Error(err))
		return nil, shared.NewDomainError("UPLOAD_URL_FAILED", "Failed to generate upload URL")
	}
	return &ReceiptUploadDTO{StorageKey: key, UploadURL: url, ExpiresAt: expiresAt}, nil
}

// ConfirmReceipt attaches an uploaded object to the expense and removes the
// receipt it replaces
func (s *ExpenseService) ConfirmReceipt(ctx context.Context, actor identity.Actor, id uuid.UUID, key string) (*ExpenseDTO, error) {
	if s.storage == nil {
		return nil, shared.NewDomainError("STORAGE_DISABLED", "Receipt storage is not configured")
	}
	expense, err := s.submittedExpense(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	// Keys outside the expense prefix would let a caller claim foreign objects
	if path.Clean(key) != key || !strings.HasPrefix(key, receiptPrefix(expense.ID)) {
		return nil, shared.NewDomainError("INVALID_RECEIPT", "Storage key does not belong to this expense")
	}

	exists, err := s.storage.ObjectExists(ctx, key)
	if err != nil {
		s.logger.Error("Failed to check receipt upload", zap.String("key", key), zap.Error(err))
		return nil, shared.NewDomainError("STORAGE_CHECK_FAILED", "Failed to verify upload")
	}
	if !exists {
		return nil, shared.NewDomainError("UPLOAD_NOT_FOUND", "Receipt not found in storage, upload it first")
	}

	previous, err := expense.AttachReceipt(key)
	if err != nil {
		return nil, err
	}
	if err := s.expenseRepo.Update(ctx, expense); err != nil {
		return nil, internalError(s.logger, err, "attach receipt")
	}

	if previous != "" && previous != key {
		if err := s.storage.DeleteObject(ctx, previous); err != nil {
			s.logger.Warn("Failed to delete replaced receipt", zap.String("key", previous), zap.Error(err))
		}
	}
	s.logger.Info("Receipt attached", zap.String("expense_id", expense.ID.String()))
	return toExpenseDTO(expense), nil
}

// ReceiptURL returns a download link for the receipt of a visible expense
func (s *ExpenseService) ReceiptURL(ctx context.Context, actor identity.Actor, id uuid.UUID) (*ReceiptURLDTO, error) {
	if s.storage == nil {
		return nil, shared.NewDomainError("STORAGE_DISABLED", "Receipt storage is not configured")
	}
	expense, err := s.expenseRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "expense")
	}
	if !expense.HasReceipt() {
		return nil, notFound("receipt")
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, expense.ReceiptKey, s.urlExpiry)
	if err != nil {
		s.logger.Error("Failed to presign receipt download", zap.String("expense_id", id.String()), zap.Error(err))
		return nil, shared.NewDomainError("DOWNLOAD_URL_FAILED", "Failed to generate download URL")
	}
	return &ReceiptURLDTO{URL: url, ExpiresAt: expiresAt}, nil
}

// submittedExpense loads a visible expense the actor submitted
func (s *ExpenseService) submittedExpense(ctx context.Context, actor identity.Actor, id uuid.UUID) (*crm.Expense, error) {
	expense, err := s.expenseRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "expense")
	}
	if expense.SubmittedBy != actor.UserID {
		return nil, shared.NewDomainError("FORBIDDEN", "Only the submitter can attach a receipt")
	}
	return expense, nil
}
