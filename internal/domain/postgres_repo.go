package domain

import "context"

// TemplateRepository источник дополнительных шаблонов в базе данных.
type TemplateRepository interface {
	// ListTemplates возвращает все шаблоны из таблицы notification_templates
	ListTemplates(ctx context.Context) ([]Template, error)
}
