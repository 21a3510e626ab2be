package templates_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"BilgiNotifier/internal/domain"
	"BilgiNotifier/internal/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTemplateRepository мок для TemplateRepository
type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Template), args.Error(1)
}

func newStore(t *testing.T, list ...domain.Template) *templates.Store {
	t.Helper()
	s := templates.NewStore()
	for _, tpl := range list {
		require.NoError(t, s.Register(tpl.Name, tpl))
	}
	return s
}

// TestRender_MissingVariablesKeptLiterally проверяет, что неизвестные плейсхолдеры не трогаются
func TestRender_MissingVariablesKeptLiterally(t *testing.T) {
	s := newStore(t, domain.Template{Name: "greet", Subject: "Hi {{name}}", HTMLBody: "<b>Hi {{name}}</b>", TextBody: "Hi {{name}}"})

	out, err := s.Render("greet", map[string]interface{}{})

	assert.NoError(t, err)
	assert.Equal(t, "Hi {{name}}", out.Subject)
	assert.Equal(t, "<b>Hi {{name}}</b>", out.HTMLBody)
	assert.Equal(t, "Hi {{name}}", out.TextBody)

	out, err = s.Render("greet", nil)
	assert.NoError(t, err)
	assert.Equal(t, "Hi {{name}}", out.Subject)
}

// TestRender_ReplacesAllOccurrences проверяет глобальную замену во всех полях
func TestRender_ReplacesAllOccurrences(t *testing.T) {
	s := newStore(t, domain.Template{
		Name:     "x",
		Subject:  "{{a}} and {{a}}",
		HTMLBody: "<p>{{a}}-{{b}}-{{a}}</p>",
		TextBody: "{{b}}{{b}} {{c}}",
	})

	out, err := s.Render("x", map[string]interface{}{"a": "1", "b": 2})

	assert.NoError(t, err)
	assert.Equal(t, "1 and 1", out.Subject)
	assert.Equal(t, "<p>1-2-1</p>", out.HTMLBody)
	assert.Equal(t, "22 {{c}}", out.TextBody)
}

// TestRender_NotFound проверяет ошибку для незарегистрированного шаблона
func TestRender_NotFound(t *testing.T) {
	s := templates.NewStore()

	_, err := s.Render("missing", map[string]interface{}{"a": 1})

	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

// TestRender_LiteralValues проверяет, что значения не интерпретируются как шаблон
func TestRender_LiteralValues(t *testing.T) {
	s := newStore(t, domain.Template{Name: "x", Subject: "{{name}} $1 {{score}}"})

	out, err := s.Render("x", map[string]interface{}{"name": "<Ayşe & Can>", "score": 95.5})

	assert.NoError(t, err)
	assert.Equal(t, "<Ayşe & Can> $1 95.5", out.Subject)
}

// TestRender_NumbersWithoutExponent проверяет печать чисел, пришедших из JSON
func TestRender_NumbersWithoutExponent(t *testing.T) {
	s := newStore(t, domain.Template{Name: "xp", Subject: "Toplam {{totalXp}} XP, seviye {{level}}, oran {{ratio}}, id {{id}}, n {{n}}"})

	out, err := s.Render("xp", map[string]interface{}{
		"totalXp": float64(1500000),
		"level":   float64(12),
		"ratio":   0.25,
		"id":      json.Number("12345678901234567890"),
		"n":       float32(2000000),
	})

	assert.NoError(t, err)
	assert.Equal(t, "Toplam 1500000 XP, seviye 12, oran 0.25, id 12345678901234567890, n 2000000", out.Subject)
}

// TestRegister_Immutable проверяет запрет повторной регистрации
func TestRegister_Immutable(t *testing.T) {
	s := newStore(t, domain.Template{Name: "x", Subject: "first"})

	err := s.Register("x", domain.Template{Subject: "second"})

	assert.ErrorIs(t, err, domain.ErrTemplateExists)
	tpl, ok := s.Get("x")
	assert.True(t, ok)
	assert.Equal(t, "first", tpl.Subject)
}

// TestRegister_EmptyName проверяет отказ для пустого имени
func TestRegister_EmptyName(t *testing.T) {
	s := templates.NewStore()

	assert.ErrorIs(t, s.Register("  ", domain.Template{}), domain.ErrEmptyTemplateName)
	assert.Empty(t, s.Names())
}

// TestNames_Sorted проверяет сортировку имен
func TestNames_Sorted(t *testing.T) {
	s := newStore(t, domain.Template{Name: "b"}, domain.Template{Name: "a"}, domain.Template{Name: "c"})

	assert.Equal(t, []string{"a", "b", "c"}, s.Names())
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("z"))
	assert.Len(t, s.List(), 3)
	assert.Equal(t, "a", s.List()[0].Name)
}

// TestRegisterBuiltin проверяет загрузку встроенного каталога
func TestRegisterBuiltin(t *testing.T) {
	s := templates.NewStore()

	require.NoError(t, templates.RegisterBuiltin(s))

	for _, name := range []string{"welcome", "password-reset", "daily-challenge", "achievement-unlocked",
		"level-up", "streak-reminder", "subscription-renewal", "payment-failed"} {
		assert.True(t, s.Has(name), name)
	}

	out, err := s.Render("welcome", map[string]interface{}{"userName": "Elif", "appUrl": "https://bilgibite.app"})
	assert.NoError(t, err)
	assert.Equal(t, "BilgiBite'a hoş geldin, Elif!", out.Subject)
	assert.Contains(t, out.HTMLBody, "https://bilgibite.app/dashboard")
	assert.Contains(t, out.TextBody, "{{examType}}")
}

// TestParseCatalog_Invalid проверяет ошибку разбора YAML
func TestParseCatalog_Invalid(t *testing.T) {
	_, err := templates.ParseCatalog([]byte("templates: [::"))

	assert.Error(t, err)
}

// TestLoadFromRepository проверяет загрузку шаблонов из базы с пропуском дублей
func TestLoadFromRepository(t *testing.T) {
	s := newStore(t, domain.Template{Name: "welcome", Subject: "builtin"})
	repo := new(MockTemplateRepository)
	repo.On("ListTemplates", mock.Anything).Return([]domain.Template{
		{Name: "welcome", Subject: "db"},
		{Name: "quiz-result", Subject: "Sonucun: {{score}}"},
		{Name: "", Subject: "broken"},
	}, nil)

	loaded, err := templates.LoadFromRepository(context.Background(), s, repo)

	assert.NoError(t, err)
	assert.Equal(t, 1, loaded)
	tpl, _ := s.Get("welcome")
	assert.Equal(t, "builtin", tpl.Subject)
	assert.True(t, s.Has("quiz-result"))
	repo.AssertExpectations(t)
}

// TestLoadFromRepository_Error проверяет проброс ошибки репозитория
func TestLoadFromRepository_Error(t *testing.T) {
	s := templates.NewStore()
	repo := new(MockTemplateRepository)
	repo.On("ListTemplates", mock.Anything).Return(nil, errors.New("db down"))

	_, err := templates.LoadFromRepository(context.Background(), s, repo)

	assert.EqualError(t, err, "db down")
}
