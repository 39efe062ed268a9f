package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/geoposts-service/internal/service"
)

// DeleteCommentResult - ответ на удаление комментария.
type DeleteCommentResult struct {
	DeletedCount int64 `json:"deletedCount"`
	Success      bool  `json:"success"`
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	var in service.AddCommentInput
	if err := decodeAndValidate(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	comment, err := h.comments.Add(r.Context(), chi.URLParam(r, "postId"), userID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

func (h *Handler) updateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	var in service.UpdateCommentInput
	if err := decodeAndValidate(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	comment, err := h.comments.Update(r.Context(), chi.URLParam(r, "postId"), chi.URLParam(r, "commentId"), userID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, comment)
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	deleted, err := h.comments.Delete(r.Context(), chi.URLParam(r, "postId"), chi.URLParam(r, "commentId"), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, DeleteCommentResult{DeletedCount: deleted, Success: true})
}

func (h *Handler) likeComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	likes, err := h.comments.Like(r.Context(),
		chi.URLParam(r, "postId"), chi.URLParam(r, "commentId"), chi.URLParam(r, "userId"), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, likes)
}

func (h *Handler) unlikeComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	likes, err := h.comments.Unlike(r.Context(),
		chi.URLParam(r, "postId"), chi.URLParam(r, "commentId"), chi.URLParam(r, "userId"), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, likes)
}
