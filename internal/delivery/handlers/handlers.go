package handlers

import (
	"errors"
	"net/http"

	"BilgiNotifier/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Handler struct {
	service domain.NotificationService
}

func NewHandlersSet(service domain.NotificationService) *Handler {
	return &Handler{
		service: service,
	}
}

var validate = validator.New()

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "обязательное поле"
	case "min":
		return "нужен хотя бы один получатель"
	case "email":
		return "некорректный email адрес"
	case "oneof":
		return "допустимые значения: " + e.Param()
	default:
		return "некорректное значение"
	}
}

// SendNotificationHandler ставит уведомление в очередь и отвечает 202, не дожидаясь доставки.
func (h *Handler) SendNotificationHandler(c *gin.Context) {
	var req SendRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный JSON: " + err.Error()})
		return
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			errorsMap := make(map[string]string)
			for _, e := range verrs {
				errorsMap[e.Namespace()] = validationMessage(e)
			}

			c.JSON(http.StatusBadRequest, gin.H{
				"message": "Ошибка валидации",
				"errors":  errorsMap,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.service.SendNotification(c.Request.Context(), req.toParams())
	if !res.Success {
		c.JSON(http.StatusBadRequest, res)
		return
	}

	c.JSON(http.StatusAccepted, res)
}

// GetJobStatusHandler возвращает последний известный статус задачи.
func (h *Handler) GetJobStatusHandler(c *gin.Context) {
	idStr := c.Param("id")
	if idStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is invalid"})
		return
	}

	s, err := h.service.GetJobStatus(c.Request.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, domain.ErrStatusStoreDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": s})
}

// StatsHandler отдает статистику очереди.
func (h *Handler) StatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetQueueStats())
}

// TemplatesHandler отдает список зарегистрированных шаблонов.
func (h *Handler) TemplatesHandler(c *gin.Context) {
	list := h.service.ListTemplates()
	out := make([]TemplateResponse, 0, len(list))
	for _, t := range list {
		out = append(out, TemplateResponse{
			Name:     t.Name,
			Subject:  t.Subject,
			HTMLBody: t.HTMLBody,
			TextBody: t.TextBody,
		})
	}
	c.JSON(http.StatusOK, gin.H{"result": out})
}
