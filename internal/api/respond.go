package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/UkralStul/geoposts-service/internal/auth"
	"github.com/UkralStul/geoposts-service/internal/domain"
	"github.com/UkralStul/geoposts-service/internal/logging"
	"github.com/UkralStul/geoposts-service/internal/validation"
)

const maxBodyBytes = 1 << 20

// ErrorBody - тело ответа с ошибкой.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string                  `json:"code"`
	Message   string                  `json:"message"`
	RequestID string                  `json:"request_id,omitempty"`
	Fields    []validation.FieldError `json:"fields,omitempty"`
}

// respondJSON пишет JSON ответ с заданным статусом.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

// respondError переводит ошибку сервиса в HTTP статус через errors.Is.
// Неизвестные ошибки - 500, их текст клиенту не отдается.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	detail := ErrorDetail{RequestID: logging.RequestIDFromContext(r.Context())}
	status := http.StatusInternalServerError

	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		detail.Code = "validation_failed"
		detail.Message = verr.Error()
		detail.Fields = verr.Fields
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
		detail.Code = "unauthorized"
		detail.Message = "missing or invalid bearer token"
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		detail.Code = "not_found"
		detail.Message = err.Error()
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
		detail.Code = "forbidden"
		detail.Message = err.Error()
	case errors.Is(err, domain.ErrBadRequest):
		status = http.StatusBadRequest
		detail.Code = "bad_request"
		detail.Message = err.Error()
	default:
		detail.Code = "internal_error"
		detail.Message = "internal server error"
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}

	respondJSON(w, status, ErrorBody{Error: detail})
}

// decodeAndValidate читает тело запроса в dst и проверяет validate теги.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty: %w", domain.ErrBadRequest)
		}
		return fmt.Errorf("invalid request body: %w", domain.ErrBadRequest)
	}
	return validation.Struct(dst)
}
