package handlers

import (
	"BilgiNotifier/internal/domain"
)

// RecipientRequest получатель в запросе на отправку.
type RecipientRequest struct {
	Address     string                 `json:"address" validate:"required,email"`
	DisplayName string                 `json:"display_name"`
	Variables   map[string]interface{} `json:"variables"`
}

// SendRequest тело запроса POST /notify/.
type SendRequest struct {
	Template   string                 `json:"template" validate:"required"`
	Recipients []RecipientRequest     `json:"recipients" validate:"required,min=1,dive"`
	Variables  map[string]interface{} `json:"variables"`
	Priority   string                 `json:"priority" validate:"omitempty,oneof=high normal low"`
}

func (r SendRequest) toParams() domain.EnqueueParams {
	recipients := make([]domain.Recipient, 0, len(r.Recipients))
	for _, rr := range r.Recipients {
		recipients = append(recipients, domain.Recipient{
			Address:     rr.Address,
			DisplayName: rr.DisplayName,
			Variables:   rr.Variables,
		})
	}
	return domain.EnqueueParams{
		TemplateName: r.Template,
		Recipients:   recipients,
		Variables:    r.Variables,
		Priority:     domain.Priority(r.Priority),
	}
}

// TemplateResponse шаблон в ответе GET /templates.
type TemplateResponse struct {
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body,omitempty"`
}
