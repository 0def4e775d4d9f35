package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i2y/bqmcp/internal/metrics"
)

// AuthenticateUseCase verifies that the warehouse credentials work before
// the server starts accepting requests.
type AuthenticateUseCase struct {
	warehouse Warehouse
	logger    *slog.Logger
}

// NewAuthenticateUseCase creates a new AuthenticateUseCase.
func NewAuthenticateUseCase(warehouse Warehouse, logger *slog.Logger) *AuthenticateUseCase {
	return &AuthenticateUseCase{
		warehouse: warehouse,
		logger:    logger.With("usecase", "Authenticate"),
	}
}

// Execute lists at most one dataset as a permission check.
func (uc *AuthenticateUseCase) Execute(ctx context.Context) error {
	if _, err := uc.warehouse.ListDatasets(ctx, 1); err != nil {
		metrics.AuthProbesTotal.WithLabelValues(metrics.StatusError).Inc()
		uc.logger.Error("Authentication error", slog.Any("error", err))
		return fmt.Errorf("authentication check failed: %w", err)
	}
	metrics.AuthProbesTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	uc.logger.Debug("Authentication check passed")
	return nil
}
