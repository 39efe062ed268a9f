// Package service реализует операции над постами и комментариями:
// проверки владельца и личности, затем вызовы хранилища.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/geoposts-service/internal/domain"
	"github.com/UkralStul/geoposts-service/internal/logging"
	"github.com/UkralStul/geoposts-service/internal/metrics"
)

// Clock позволяет подменять текущее время в тестах.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// internalError логирует сбой хранилища с контекстом и возвращает его как внутреннюю ошибку.
// Повторов нет.
func internalError(ctx context.Context, op string, err error) error {
	metrics.StorageErrors.WithLabelValues(op).Inc()
	logging.Ctx(ctx).Error().Err(err).Str("operation", op).Msg("storage operation failed")
	return fmt.Errorf("%s: %w", op, err)
}

// notFoundOr возвращает ErrNotFound как есть, остальное считает внутренней ошибкой.
func notFoundOr(ctx context.Context, op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return internalError(ctx, op, err)
}

// badRequestOr превращает несовпадение условного обновления в ErrBadRequest:
// "не найден" и "не владелец" здесь неразличимы.
func badRequestOr(ctx context.Context, op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrBadRequest)
	}
	return internalError(ctx, op, err)
}
