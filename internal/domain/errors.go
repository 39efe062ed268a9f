package domain

import "errors"

var (
	// ErrNotFound - ресурс не найден (или условное обновление ничего не нашло).
	ErrNotFound = errors.New("not found")
	// ErrForbidden - несовпадение владельца или личности.
	ErrForbidden = errors.New("forbidden")
	// ErrBadRequest - неверная ссылка, конфликтующее состояние или неразличимые not-found/not-owner.
	ErrBadRequest = errors.New("bad request")
)
