package service

import (
	"context"

	"BilgiNotifier/internal/domain"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

// Enqueuer очередь, в которую сервис ставит задачи.
type Enqueuer interface {
	Enqueue(p domain.EnqueueParams) (*domain.Job, error)
	Stats() domain.QueueStats
}

// TemplateLister список зарегистрированных шаблонов.
type TemplateLister interface {
	List() []domain.Template
}

// ProcessingReporter сообщает, занят ли воркер.
type ProcessingReporter interface {
	IsProcessing() bool
}

type NotificationService struct {
	queue     Enqueuer
	templates TemplateLister
	worker    ProcessingReporter
	statuses  *StatusRecorder
}

func NewNotificationService(
	queue Enqueuer,
	templates TemplateLister,
	worker ProcessingReporter,
	statuses *StatusRecorder) *NotificationService {
	if statuses == nil {
		statuses = NewStatusRecorder(nil, 0)
	}
	return &NotificationService{queue: queue, templates: templates, worker: worker, statuses: statuses}
}

// SendNotification ставит уведомление в очередь. Доставка происходит позже и результат вызывающему не сообщается.
func (s *NotificationService) SendNotification(ctx context.Context, params domain.EnqueueParams) domain.SendResult {
	op := "SendNotification:"
	j, err := s.queue.Enqueue(params)
	if err != nil {
		zlog.Logger.Warn().Msgf("%s notification (template = %s) rejected: %v", op, params.TemplateName, err)
		return domain.SendResult{Success: false, Error: err.Error()}
	}
	s.statuses.Record(ctx, j, nil)
	zlog.Logger.Debug().Msgf("%s job %s queued with priority %s", op, j.ID, j.Priority)
	return domain.SendResult{Success: true, MessageID: j.ID.String()}
}

// GetQueueStats возвращает статистику очереди для панели мониторинга.
func (s *NotificationService) GetQueueStats() domain.ServiceStats {
	st := s.queue.Stats()
	templates := st.TemplatesAvailable
	if templates == nil {
		templates = []string{}
	}
	return domain.ServiceStats{
		TotalQueued:        st.TotalQueued,
		Pending:            st.PendingCount,
		Failed:             st.FailedCount,
		HighPriority:       st.HighPriorityCount,
		IsProcessing:       s.worker.IsProcessing(),
		AvailableTemplates: templates,
	}
}

// GetJobStatus возвращает последний снимок задачи.
func (s *NotificationService) GetJobStatus(ctx context.Context, id uuid.UUID) (*domain.JobSnapshot, error) {
	return s.statuses.Lookup(ctx, id)
}

// ListTemplates возвращает зарегистрированные шаблоны.
func (s *NotificationService) ListTemplates() []domain.Template {
	return s.templates.List()
}
