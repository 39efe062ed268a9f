package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/geoposts-service/internal/auth"
	"github.com/UkralStul/geoposts-service/internal/service"
)

// requester - id пользователя из проверенного токена.
func requester(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, r, auth.ErrMissingToken)
	}
	return userID, ok
}

func (h *Handler) listNearbyPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	posts, err := h.posts.ListNearby(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	var in service.CreatePostInput
	if err := decodeAndValidate(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	post, err := h.posts.Create(r.Context(), userID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, post)
}

func (h *Handler) getPostDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.comments.Detail(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	res, err := h.posts.Delete(r.Context(), chi.URLParam(r, "postId"), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	var in service.UpdatePostInput
	if err := decodeAndValidate(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	post, err := h.posts.Update(r.Context(), chi.URLParam(r, "postId"), userID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// likePost ставит лайк от имени пользователя из пути.
func (h *Handler) likePost(w http.ResponseWriter, r *http.Request) {
	likes, err := h.posts.Like(r.Context(), chi.URLParam(r, "postId"), chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, likes)
}

func (h *Handler) unlikePost(w http.ResponseWriter, r *http.Request) {
	likes, err := h.posts.Unlike(r.Context(), chi.URLParam(r, "postId"), chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, likes)
}
