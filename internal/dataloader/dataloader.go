package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/UkralStul/geoposts-service/internal/domain"
	"github.com/UkralStul/geoposts-service/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	ChildrenByCommentID *dataloader.Loader
}

// NewLoaders создает лоадеры поверх хранилища. Живут они один запрос.
func NewLoaders(store storage.Storage) *Loaders {
	// Создаем батч-функцию для лоадера
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		parentIDs := keys.Keys()

		// Вызываем метод хранилища, который делает ОДИН запрос к БД
		commentsMap, err := store.GetCommentsByParentIDs(ctx, parentIDs)
		if err != nil {
			// В случае ошибки, возвращаем ее для всех ключей
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Формируем результат в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, parentID := range parentIDs {
			results[i] = &dataloader.Result{Data: commentsMap[parentID]}
		}
		return results
	}

	return &Loaders{
		ChildrenByCommentID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, NewLoaders(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// For извлекает лоадеры из контекста. Вне HTTP запроса возвращает nil.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// WithLoaders кладет лоадеры в контекст (для фоновых задач и тестов).
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, key, loaders)
}

// LoadChildren загружает прямых детей для всех parentIDs одним батчем.
// Если лоадеров в контексте нет, идет в хранилище напрямую.
func LoadChildren(ctx context.Context, store storage.Storage, parentIDs []string) (map[string][]*domain.Comment, error) {
	if len(parentIDs) == 0 {
		return map[string][]*domain.Comment{}, nil
	}

	loaders := For(ctx)
	if loaders == nil {
		return store.GetCommentsByParentIDs(ctx, parentIDs)
	}

	data, errs := loaders.ChildrenByCommentID.LoadMany(ctx, dataloader.NewKeysFromStrings(parentIDs))()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to load child comments: %w", err)
		}
	}

	result := make(map[string][]*domain.Comment, len(parentIDs))
	for i, parentID := range parentIDs {
		children, _ := data[i].([]*domain.Comment)
		result[parentID] = children
	}
	return result, nil
}
