package crm

import (
	"context"
	"errors"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SettingsService reads and updates the business settings singleton
type SettingsService struct {
	settingsRepo crm.SettingsRepository
	logger       *zap.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(settingsRepo crm.SettingsRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo, logger: logger}
}

// Current returns the stored settings, or the defaults when none were saved yet
func (s *SettingsService) Current(ctx context.Context) (*crm.BusinessSettings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return crm.DefaultBusinessSettings(), nil
		}
		return nil, internalError(s.logger, err, "load business settings")
	}
	return settings, nil
}

// Get returns the settings as a DTO
func (s *SettingsService) Get(ctx context.Context) (*SettingsDTO, error) {
	settings, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return toSettingsDTO(settings), nil
}

// Update validates and stores new settings
func (s *SettingsService) Update(ctx context.Context, input UpdateSettingsInput) (*SettingsDTO, error) {
	settings, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if err := settings.Update(input.CompanyName, input.Address, input.Email, input.Phone, input.TaxID,
		input.BaseCurrency, input.InvoicePrefix, input.QuotationPrefix); err != nil {
		return nil, err
	}

	if err := s.settingsRepo.Save(ctx, settings); err != nil {
		return nil, internalError(s.logger, err, "save business settings")
	}

	s.logger.Info("Business settings updated", zap.String("base_currency", settings.BaseCurrency))
	return toSettingsDTO(settings), nil
}
