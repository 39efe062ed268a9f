package main

import (
	"context"

	"github.com/UkralStul/geoposts-service/internal/domain"
	"github.com/UkralStul/geoposts-service/internal/logging"
	"github.com/UkralStul/geoposts-service/internal/service"
	"github.com/UkralStul/geoposts-service/internal/storage/inmemory"
)

// fillWithMockData заполняет in-memory хранилище для ручной проверки.
// Пользователи получают фиксированные id, чтобы под них можно было выпустить токен.
func fillWithMockData(ctx context.Context, store *inmemory.Store, posts *service.Posts, comments *service.Comments) {
	alice := store.PutUser(&domain.User{
		ID: "user-1", FirstName: "Алиса", LastName: "Иванова",
		Location: domain.NewPoint(30.3158, 59.9391), Type: "individual",
	})
	bob := store.PutUser(&domain.User{
		ID: "user-2", FirstName: "Борис", LastName: "Петров",
		Location: domain.NewPoint(30.3609, 59.9311), Type: "individual",
	})
	cafe := store.PutUser(&domain.User{
		ID: "user-3", FirstName: "Кофейня", LastName: "На Невском",
		Location: domain.NewPoint(37.6173, 55.7558), Type: "business",
	})

	// 1. Пост рядом с центром и ветка комментариев к нему.
	post, err := posts.Create(ctx, alice.ID, service.CreatePostInput{
		Title:    "Белые ночи",
		Content:  "Кто идет смотреть развод мостов сегодня?",
		ExpireAt: 24 * 60 * 60,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("fillWithMockData: failed to create post")
	}

	c1, err := comments.Add(ctx, post.ID, bob.ID, service.AddCommentInput{Comment: "Я иду! Во сколько встречаемся?"})
	if err != nil {
		logging.Fatal().Err(err).Msg("fillWithMockData: failed to create comment")
	}

	// 2. Ответ на первый комментарий.
	if _, err := comments.Add(ctx, post.ID, alice.ID, service.AddCommentInput{
		Comment:  "В час ночи у Дворцового.",
		ParentID: &c1.ID,
	}); err != nil {
		logging.Fatal().Err(err).Msg("fillWithMockData: failed to create nested comment")
	}

	if _, err := posts.Like(ctx, post.ID, bob.ID); err != nil {
		logging.Fatal().Err(err).Msg("fillWithMockData: failed to like post")
	}

	// 3. Далекий пост, чтобы было видно сортировку по расстоянию.
	farPost, err := posts.Create(ctx, cafe.ID, service.CreatePostInput{
		Title:    "Новое меню",
		Content:  "Сезонные десерты до конца недели.",
		ExpireAt: 7 * 24 * 60 * 60,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("fillWithMockData: failed to create far post")
	}

	logging.Info().
		Str("post_id", post.ID).
		Str("far_post_id", farPost.ID).
		Strs("user_ids", []string{alice.ID, bob.ID, cafe.ID}).
		Msg("mock data filled")
}
