package pg

import (
	"context"
	"database/sql"

	"BilgiNotifier/internal/domain"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// TemplateRepo структура для чтения шаблонов из PostgreSQL.
type TemplateRepo struct {
	DB *dbpg.DB
}

// NewTemplateRepo создает новый экземпляр TemplateRepo.
func NewTemplateRepo(db *dbpg.DB) *TemplateRepo {
	return &TemplateRepo{
		DB: db,
	}
}

// ListTemplates получает все шаблоны из таблицы notification_templates.
func (p *TemplateRepo) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	sqlQuery := `SELECT name, subject, html_body, text_body FROM notification_templates ORDER BY name`

	rows, err := p.DB.QueryContext(ctx, sqlQuery)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Error exec list templates sql")
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var list []domain.Template
	for rows.Next() {
		var t domain.Template
		var htmlBody, textBody sql.NullString
		if err := rows.Scan(&t.Name, &t.Subject, &htmlBody, &textBody); err != nil {
			zlog.Logger.Error().Err(err).Msg("Error scan template row")
			return nil, err
		}
		t.HTMLBody = htmlBody.String
		t.TextBody = textBody.String
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Error iterate template rows")
		return nil, err
	}

	zlog.Logger.Debug().Int("count", len(list)).Msg("templates loaded from database")
	return list, nil
}
