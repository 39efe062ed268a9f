package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/UkralStul/geoposts-service/internal/logging"
)

const (
	streamPingInterval = 10 * time.Second
	streamWriteWait    = 5 * time.Second
)

// streamComments отдает новые комментарии поста по websocket, пока клиент подключен.
func (h *Handler) streamComments(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")
	if _, err := h.posts.Get(r.Context(), postID); err != nil {
		respondError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже записал ответ
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := logging.Ctx(ctx).With().Str("post_id", postID).Logger()
	log.Debug().Msg("comment stream opened")

	comments := h.feed.Subscribe(ctx, postID)

	// Входящие сообщения не ждем, читаем только чтобы заметить закрытие
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("comment stream closed")
			return
		case c, ok := <-comments:
			if !ok {
				return
			}
			data, err := json.Marshal(c)
			if err != nil {
				log.Error().Err(err).Msg("failed to encode comment")
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Msg("comment stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}
