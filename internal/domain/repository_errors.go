package domain

import "errors"

var (
	// ErrNotFound ошибка, когда задача не найдена.
	ErrNotFound = errors.New("notification not found")
	// ErrStatusStoreDisabled хранилище статусов не подключено.
	ErrStatusStoreDisabled = errors.New("status store is disabled")
)
