package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"BilgiNotifier/internal/domain"
	"BilgiNotifier/internal/metrics"
	"github.com/wb-go/wbf/zlog"
)

// DefaultInterval период срабатывания таймера воркера.
const DefaultInterval = 5 * time.Second

// JobQueue очередь, из которой воркер берет задачи.
type JobQueue interface {
	DequeueNext() (*domain.Job, bool)
	Requeue(j *domain.Job)
	MarkFailed()
	Len() int
}

// Renderer подставляет переменные в шаблон.
type Renderer interface {
	Render(name string, variables map[string]interface{}) (domain.RenderedContent, error)
}

// Config настройки воркера.
type Config struct {
	Interval time.Duration
	// SinkName используется только как метка метрик
	SinkName string
}

// Dispatcher воркер, который на каждом тике забирает одну задачу и рассылает ее получателям.
// Одновременно выполняется не больше одного цикла обработки.
type Dispatcher struct {
	queue    JobQueue
	renderer Renderer
	sink     domain.DeliverySink
	recorder domain.JobRecorder
	interval time.Duration
	sinkName string

	processing atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher создает воркер. recorder может быть nil.
func NewDispatcher(q JobQueue, r Renderer, sink domain.DeliverySink, recorder domain.JobRecorder,
	cfg Config) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.SinkName == "" {
		cfg.SinkName = "unknown"
	}
	return &Dispatcher{
		queue:    q,
		renderer: r,
		sink:     sink,
		recorder: recorder,
		interval: cfg.Interval,
		sinkName: cfg.SinkName,
	}
}

// Start запускает таймер воркера. Повторный вызов без Stop ничего не делает.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		zlog.Logger.Warn().Msg("dispatcher already started")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.wg.Add(1)
	go d.run(runCtx)
	zlog.Logger.Info().Dur("interval", d.interval).Str("sink", d.sinkName).Msg("dispatcher started")
}

// Stop останавливает таймер и ждет завершения текущего цикла.
// Зависшая доставка не дает циклу завершиться, поэтому ожидание ограничено ctx.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		zlog.Logger.Info().Msg("dispatcher stopped")
		return nil
	case <-ctx.Done():
		zlog.Logger.Warn().Msg("dispatcher stop timed out, a delivery is still in progress")
		return ctx.Err()
	}
}

// IsProcessing сообщает, выполняется ли сейчас цикл обработки.
func (d *Dispatcher) IsProcessing() bool {
	return d.processing.Load()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// тик не ждет предыдущий цикл, от наложения защищает флаг processing
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.Tick(ctx)
			}()
		}
	}
}

// Tick выполняет один цикл обработки: не больше одной задачи за вызов.
// Возвращает true, если задача была взята из очереди.
func (d *Dispatcher) Tick(ctx context.Context) bool {
	// после отмены новые задачи не берем
	if ctx.Err() != nil || d.queue.Len() == 0 {
		return false
	}
	if !d.processing.CompareAndSwap(false, true) {
		zlog.Logger.Debug().Msg("previous dispatch cycle still running, skipping tick")
		return false
	}
	defer d.processing.Store(false)

	j, ok := d.queue.DequeueNext()
	if !ok {
		return false
	}
	d.process(ctx, j)
	return true
}

func (d *Dispatcher) process(ctx context.Context, j *domain.Job) {
	j.Status = domain.StatusSending
	d.record(ctx, j, nil)

	err := d.deliverAll(ctx, j)
	if err == nil {
		j.Status = domain.StatusSent
		metrics.JobsSent.Inc()
		zlog.Logger.Info().Str("job_id", j.ID.String()).Str("template", j.TemplateName).
			Int("recipients", len(j.Recipients)).Int("attempt_count", j.AttemptCount).Msg("notification sent")
		d.record(ctx, j, nil)
		return
	}

	j.AttemptCount++
	if j.AttemptCount < j.MaxAttempts {
		j.Status = domain.StatusPending
		metrics.JobsRetried.Inc()
		zlog.Logger.Warn().Err(err).Str("job_id", j.ID.String()).
			Int("attempt_count", j.AttemptCount).Int("max_attempts", j.MaxAttempts).
			Msg("notification delivery failed, job requeued")
		d.record(ctx, j, err)
		d.queue.Requeue(j)
		return
	}

	j.Status = domain.StatusFailed
	d.queue.MarkFailed()
	metrics.JobsFailed.Inc()
	zlog.Logger.Error().Err(err).Str("job_id", j.ID.String()).Str("template", j.TemplateName).
		Int("attempt_count", j.AttemptCount).Msg("notification delivery failed, attempts exhausted")
	d.record(ctx, j, err)
}

// deliverAll рассылает задачу получателям по порядку и останавливается на первой ошибке.
// При повторной попытке задача рассылается всем получателям заново.
func (d *Dispatcher) deliverAll(ctx context.Context, j *domain.Job) (err error) {
	current := ""
	defer func() {
		if r := recover(); r != nil {
			err = &domain.DeliveryError{
				JobID:     j.ID,
				Recipient: current,
				Attempt:   j.AttemptCount + 1,
				Err:       fmt.Errorf("panic during delivery: %v", r),
			}
		}
	}()

	for _, r := range j.Recipients {
		current = r.Address
		content, rerr := d.renderer.Render(j.TemplateName, j.VariablesFor(r))
		if rerr != nil {
			return &domain.DeliveryError{JobID: j.ID, Recipient: r.Address, Attempt: j.AttemptCount + 1, Err: rerr}
		}
		msg := domain.OutgoingMessage{
			JobID:        j.ID,
			TemplateName: j.TemplateName,
			To:           r.Address,
			DisplayName:  r.DisplayName,
			Subject:      content.Subject,
			HTMLBody:     content.HTMLBody,
			TextBody:     content.TextBody,
		}
		if derr := d.sink.Deliver(ctx, msg); derr != nil {
			metrics.Deliveries.WithLabelValues(d.sinkName, "error").Inc()
			return &domain.DeliveryError{JobID: j.ID, Recipient: r.Address, Attempt: j.AttemptCount + 1, Err: derr}
		}
		metrics.Deliveries.WithLabelValues(d.sinkName, "ok").Inc()
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, j *domain.Job, lastErr error) {
	if d.recorder == nil {
		return
	}
	d.recorder.Record(ctx, j, lastErr)
}
