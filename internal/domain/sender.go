package domain

import "context"

// DeliverySink транспорт, который фактически отправляет сообщение.
type DeliverySink interface {
	// Deliver отправляет одно отрендеренное сообщение. Любая ошибка считается неудачной доставкой.
	Deliver(ctx context.Context, msg OutgoingMessage) error
}

// JobRecorder получает снимки задачи при постановке в очередь и при каждом переходе статуса.
type JobRecorder interface {
	Record(ctx context.Context, j *Job, lastErr error)
}
