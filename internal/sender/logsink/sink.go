package logsink

import (
	"context"

	"BilgiNotifier/internal/domain"
	"github.com/wb-go/wbf/zlog"
)

// Sink транспорт для разработки: ничего не отправляет, только пишет сообщение в лог.
type Sink struct{}

// New создает новый экземпляр Sink.
func New() *Sink {
	return &Sink{}
}

// Deliver логирует сообщение и всегда завершается успешно, если ctx не отменен.
func (s *Sink) Deliver(ctx context.Context, msg domain.OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	zlog.Logger.Info().
		Str("job_id", msg.JobID.String()).
		Str("template", msg.TemplateName).
		Str("to", msg.To).
		Str("display_name", msg.DisplayName).
		Str("subject", msg.Subject).
		Int("html_size", len(msg.HTMLBody)).
		Int("text_size", len(msg.TextBody)).
		Msg("notification delivered to log sink")
	return nil
}
