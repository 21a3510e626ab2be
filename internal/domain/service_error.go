package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrUnknownTemplate ошибка постановки в очередь с незарегистрированным шаблоном.
	ErrUnknownTemplate = errors.New("unknown template")
	// ErrTemplateNotFound ошибка рендеринга незарегистрированного шаблона.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrTemplateExists ошибка повторной регистрации шаблона.
	ErrTemplateExists = errors.New("template already registered")
	// ErrEmptyTemplateName ошибка пустого имени шаблона.
	ErrEmptyTemplateName = errors.New("template name is empty")
	// ErrEmptyRecipients ошибка пустого списка получателей.
	ErrEmptyRecipients = errors.New("recipients list is empty")
	// ErrEmptyRecipient ошибка пустого адреса получателя.
	ErrEmptyRecipient = errors.New("recipient address is empty")
	// ErrInvalidPriority ошибка невалидного приоритета.
	ErrInvalidPriority = errors.New("invalid priority")
)

// DeliveryError ошибка доставки сообщения одному получателю.
type DeliveryError struct {
	JobID     uuid.UUID
	Recipient string
	Attempt   int
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery of job %s to %s failed on attempt %d: %v",
		e.JobID, e.Recipient, e.Attempt, e.Err)
}

// Unwrap возвращает исходную ошибку транспорта.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}
