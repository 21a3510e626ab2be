package templates

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"BilgiNotifier/internal/domain"
	"github.com/wb-go/wbf/zlog"
	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinRaw []byte

type catalog struct {
	Templates []domain.Template `yaml:"templates"`
}

// ParseCatalog разбирает YAML-каталог шаблонов.
func ParseCatalog(raw []byte) ([]domain.Template, error) {
	var c catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse template catalog: %w", err)
	}
	return c.Templates, nil
}

// Builtin возвращает встроенные шаблоны BilgiBite.
func Builtin() ([]domain.Template, error) {
	return ParseCatalog(builtinRaw)
}

// RegisterBuiltin регистрирует встроенные шаблоны в хранилище.
func RegisterBuiltin(s *Store) error {
	list, err := Builtin()
	if err != nil {
		return err
	}
	for _, t := range list {
		if err := s.Register(t.Name, t); err != nil {
			return err
		}
	}
	return nil
}

// LoadFromRepository регистрирует шаблоны из базы данных.
// Шаблоны с уже занятым именем пропускаются.
func LoadFromRepository(ctx context.Context, s *Store, repo domain.TemplateRepository) (int, error) {
	list, err := repo.ListTemplates(ctx)
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, t := range list {
		err := s.Register(t.Name, t)
		switch {
		case err == nil:
			loaded++
		case errors.Is(err, domain.ErrTemplateExists):
			zlog.Logger.Warn().Str("template", t.Name).Msg("template already registered, skipping database copy")
		default:
			zlog.Logger.Warn().Err(err).Str("template", t.Name).Msg("skipping invalid template")
		}
	}
	return loaded, nil
}
