package domain

import (
	"context"

	"github.com/google/uuid"
)

// NotificationService интерфейс для работы с уведомлениями.
type NotificationService interface {
	// SendNotification ставит уведомление в очередь и сразу возвращает подтверждение
	SendNotification(ctx context.Context, params EnqueueParams) SendResult
	// GetQueueStats возвращает статистику очереди
	GetQueueStats() ServiceStats
	// GetJobStatus возвращает последний снимок задачи
	GetJobStatus(ctx context.Context, id uuid.UUID) (*JobSnapshot, error)
	// ListTemplates возвращает зарегистрированные шаблоны
	ListTemplates() []Template
}
