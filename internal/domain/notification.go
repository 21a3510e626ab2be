package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

// String возвращает строковое представление статуса.
func (s Status) String() string {
	return string(s)
}

// IsValid проверяет, является ли статус валидным.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSending, StatusSent, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal сообщает, что задача больше не вернется в очередь.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

type Priority string

// String возвращает строковое представление приоритета.
func (p Priority) String() string {
	return string(p)
}

// IsValid проверяет, является ли приоритет валидным.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	default:
		return false
	}
}

// Weight возвращает вес приоритета для сортировки очереди (больше - раньше).
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

const (
	StatusPending Status = "pending"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// DefaultMaxAttempts потолок попыток доставки одной задачи.
const DefaultMaxAttempts = 3

// Recipient получатель уведомления.
type Recipient struct {
	Address     string
	DisplayName string
	// Variables перекрывают переменные задачи только для этого получателя
	Variables map[string]interface{}
}

// Job задача на рассылку одного уведомления, возможно нескольким получателям.
type Job struct {
	ID           uuid.UUID
	TemplateName string
	Recipients   []Recipient
	Variables    map[string]interface{}
	Priority     Priority
	AttemptCount int
	MaxAttempts  int
	Status       Status
	EnqueuedAt   time.Time
}

// VariablesFor объединяет переменные задачи с переменными получателя.
// При конфликте побеждает значение получателя.
func (j *Job) VariablesFor(r Recipient) map[string]interface{} {
	merged := make(map[string]interface{}, len(j.Variables)+len(r.Variables))
	for k, v := range j.Variables {
		merged[k] = v
	}
	for k, v := range r.Variables {
		merged[k] = v
	}
	return merged
}

// EnqueueParams параметры для постановки уведомления в очередь.
type EnqueueParams struct {
	TemplateName string
	Recipients   []Recipient
	Variables    map[string]interface{}
	Priority     Priority
}

// Template именованный шаблон сообщения с плейсхолдерами {{name}}.
type Template struct {
	Name     string `yaml:"name"`
	Subject  string `yaml:"subject"`
	HTMLBody string `yaml:"html"`
	TextBody string `yaml:"text"`
}

// RenderedContent результат подстановки переменных в шаблон.
type RenderedContent struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// OutgoingMessage сообщение, передаваемое в DeliverySink.
type OutgoingMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	TemplateName string    `json:"template"`
	To           string    `json:"to"`
	DisplayName  string    `json:"display_name,omitempty"`
	Subject      string    `json:"subject"`
	HTMLBody     string    `json:"html_body"`
	TextBody     string    `json:"text_body"`
}

// QueueStats снимок состояния очереди.
type QueueStats struct {
	TotalQueued        int
	PendingCount       int
	FailedCount        int
	HighPriorityCount  int
	TemplatesAvailable []string
}

// SendResult синхронное подтверждение постановки уведомления в очередь.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ServiceStats статистика для панели мониторинга.
type ServiceStats struct {
	TotalQueued        int      `json:"totalQueued"`
	Pending            int      `json:"pending"`
	Failed             int      `json:"failed"`
	HighPriority       int      `json:"highPriority"`
	IsProcessing       bool     `json:"isProcessing"`
	AvailableTemplates []string `json:"availableTemplates"`
}

// JobSnapshot последнее известное состояние задачи.
type JobSnapshot struct {
	ID           uuid.UUID `json:"id"`
	TemplateName string    `json:"template"`
	Recipients   []string  `json:"recipients"`
	Priority     Priority  `json:"priority"`
	Status       Status    `json:"status"`
	AttemptCount int       `json:"attempt_count"`
	MaxAttempts  int       `json:"max_attempts"`
	LastError    string    `json:"last_error,omitempty"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewJobSnapshot строит снимок задачи. lastErr может быть nil.
func NewJobSnapshot(j *Job, lastErr error, now time.Time) JobSnapshot {
	addrs := make([]string, 0, len(j.Recipients))
	for _, r := range j.Recipients {
		addrs = append(addrs, r.Address)
	}
	s := JobSnapshot{
		ID:           j.ID,
		TemplateName: j.TemplateName,
		Recipients:   addrs,
		Priority:     j.Priority,
		Status:       j.Status,
		AttemptCount: j.AttemptCount,
		MaxAttempts:  j.MaxAttempts,
		EnqueuedAt:   j.EnqueuedAt,
		UpdatedAt:    now,
	}
	if lastErr != nil {
		s.LastError = lastErr.Error()
	}
	return s
}
