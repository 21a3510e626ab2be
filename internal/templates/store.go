package templates

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"BilgiNotifier/internal/domain"
)

// Store хранилище именованных шаблонов. Шаблоны неизменяемы после регистрации.
type Store struct {
	mu        sync.RWMutex
	templates map[string]domain.Template
}

// NewStore создает пустое хранилище шаблонов.
func NewStore() *Store {
	return &Store{templates: make(map[string]domain.Template)}
}

// Register регистрирует шаблон под указанным именем.
func (s *Store) Register(name string, t domain.Template) error {
	if strings.TrimSpace(name) == "" {
		return domain.ErrEmptyTemplateName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[name]; ok {
		return fmt.Errorf("%w: %s", domain.ErrTemplateExists, name)
	}
	t.Name = name
	s.templates[name] = t
	return nil
}

// Get возвращает шаблон по имени.
func (s *Store) Get(name string) (domain.Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[name]
	return t, ok
}

// Has сообщает, зарегистрирован ли шаблон.
func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Names возвращает отсортированный список имен шаблонов.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List возвращает все шаблоны в порядке имен.
func (s *Store) List() []domain.Template {
	names := s.Names()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Template, 0, len(names))
	for _, name := range names {
		out = append(out, s.templates[name])
	}
	return out
}

// Render подставляет переменные во все три поля шаблона.
// Плейсхолдеры без значения остаются в тексте как есть.
func (s *Store) Render(name string, variables map[string]interface{}) (domain.RenderedContent, error) {
	t, ok := s.Get(name)
	if !ok {
		return domain.RenderedContent{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
	}
	return domain.RenderedContent{
		Subject:  substitute(t.Subject, variables),
		HTMLBody: substitute(t.HTMLBody, variables),
		TextBody: substitute(t.TextBody, variables),
	}, nil
}

// substitute заменяет все вхождения {{key}}; ключи обходятся в отсортированном порядке.
func substitute(text string, variables map[string]interface{}) string {
	if len(variables) == 0 || text == "" {
		return text
	}
	keys := make([]string, 0, len(variables))
	for k := range variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		text = strings.ReplaceAll(text, "{{"+k+"}}", formatValue(variables[k]))
	}
	return text
}

// formatValue печатает числа без экспоненты: JSON декодирует любое число во float64.
func formatValue(v interface{}) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case json.Number:
		return n.String()
	default:
		return fmt.Sprint(v)
	}
}
