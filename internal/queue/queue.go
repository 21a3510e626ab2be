package queue

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"BilgiNotifier/internal/domain"
	"BilgiNotifier/internal/metrics"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

// TemplateCatalog то, что очереди нужно знать о шаблонах.
type TemplateCatalog interface {
	Has(name string) bool
	Names() []string
}

// Queue упорядоченная по приоритету очередь задач в памяти процесса.
// Внутри одного приоритета сохраняется порядок вставки.
type Queue struct {
	mu          sync.Mutex
	jobs        []*domain.Job
	templates   TemplateCatalog
	maxAttempts int
	failed      int

	now   func() time.Time
	newID func() uuid.UUID
}

// Option настройка очереди.
type Option func(*Queue)

// WithClock задает источник времени для enqueuedAt.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// WithIDGenerator задает генератор идентификаторов задач.
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(q *Queue) {
		q.newID = gen
	}
}

// New создает очередь. maxAttempts <= 0 означает значение по умолчанию.
func New(templates TemplateCatalog, maxAttempts int, opts ...Option) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}
	q := &Queue{
		templates:   templates,
		maxAttempts: maxAttempts,
		now:         time.Now,
		newID:       uuid.New,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// MaxAttempts возвращает потолок попыток, назначаемый новым задачам.
func (q *Queue) MaxAttempts() int {
	return q.maxAttempts
}

// Enqueue проверяет параметры, создает задачу в статусе pending и ставит ее в очередь.
// Возвращает копию принятой задачи.
func (q *Queue) Enqueue(p domain.EnqueueParams) (*domain.Job, error) {
	op := "Enqueue:"
	if !q.templates.Has(p.TemplateName) {
		zlog.Logger.Warn().Msgf("%s template %q is not registered", op, p.TemplateName)
		metrics.EnqueueRejected.WithLabelValues("unknown_template").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTemplate, p.TemplateName)
	}
	if len(p.Recipients) == 0 {
		metrics.EnqueueRejected.WithLabelValues("empty_recipients").Inc()
		return nil, domain.ErrEmptyRecipients
	}
	for _, r := range p.Recipients {
		if strings.TrimSpace(r.Address) == "" {
			metrics.EnqueueRejected.WithLabelValues("empty_recipient").Inc()
			return nil, domain.ErrEmptyRecipient
		}
	}
	priority := p.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.IsValid() {
		metrics.EnqueueRejected.WithLabelValues("invalid_priority").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidPriority, priority)
	}

	j := &domain.Job{
		ID:           q.newID(),
		TemplateName: p.TemplateName,
		Recipients:   copyRecipients(p.Recipients),
		Variables:    copyVariables(p.Variables),
		Priority:     priority,
		AttemptCount: 0,
		MaxAttempts:  q.maxAttempts,
		Status:       domain.StatusPending,
		EnqueuedAt:   q.now(),
	}

	q.mu.Lock()
	q.insertLocked(j)
	depth := len(q.jobs)
	q.mu.Unlock()

	metrics.JobsEnqueued.WithLabelValues(priority.String()).Inc()
	metrics.QueueDepth.Set(float64(depth))
	zlog.Logger.Debug().Str("job_id", j.ID.String()).Str("template", j.TemplateName).
		Str("priority", priority.String()).Int("recipients", len(j.Recipients)).Msg("job enqueued")

	return cloneJob(j), nil
}

// DequeueNext извлекает первую задачу: с наивысшим приоритетом и самую раннюю внутри него.
func (q *Queue) DequeueNext() (*domain.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, false
	}
	j := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	metrics.QueueDepth.Set(float64(len(q.jobs)))
	return j, true
}

// Requeue возвращает задачу после неудачной попытки в конец очереди.
// После пересортировки она оказывается последней в своем приоритете.
func (q *Queue) Requeue(j *domain.Job) {
	j.Status = domain.StatusPending
	q.mu.Lock()
	q.insertLocked(j)
	depth := len(q.jobs)
	q.mu.Unlock()
	metrics.QueueDepth.Set(float64(depth))
}

// MarkFailed учитывает задачу, исчерпавшую попытки.
func (q *Queue) MarkFailed() {
	q.mu.Lock()
	q.failed++
	q.mu.Unlock()
}

// Len возвращает число задач в очереди.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Stats возвращает снимок состояния очереди.
func (q *Queue) Stats() domain.QueueStats {
	q.mu.Lock()
	s := domain.QueueStats{
		TotalQueued: len(q.jobs),
		FailedCount: q.failed,
	}
	for _, j := range q.jobs {
		if j.Status == domain.StatusPending {
			s.PendingCount++
		}
		if j.Priority == domain.PriorityHigh {
			s.HighPriorityCount++
		}
	}
	q.mu.Unlock()
	s.TemplatesAvailable = q.templates.Names()
	return s
}

func (q *Queue) insertLocked(j *domain.Job) {
	q.jobs = append(q.jobs, j)
	slices.SortStableFunc(q.jobs, func(a, b *domain.Job) int {
		return b.Priority.Weight() - a.Priority.Weight()
	})
}

func copyVariables(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyRecipients(in []domain.Recipient) []domain.Recipient {
	out := make([]domain.Recipient, len(in))
	for i, r := range in {
		out[i] = domain.Recipient{
			Address:     r.Address,
			DisplayName: r.DisplayName,
			Variables:   copyVariables(r.Variables),
		}
	}
	return out
}

func cloneJob(j *domain.Job) *domain.Job {
	c := *j
	c.Recipients = copyRecipients(j.Recipients)
	c.Variables = copyVariables(j.Variables)
	return &c
}
