// Package catalog loads the fixed pool of reflection prompts.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

//go:embed prompts.yaml
var defaultCatalog []byte

type file struct {
	Prompts []entry `yaml:"prompts" validate:"required,min=1,dive"`
}

type entry struct {
	ID       string `yaml:"id" validate:"required,max=64"`
	Theme    string `yaml:"theme" validate:"required,max=64"`
	Text     string `yaml:"text" validate:"required,max=512"`
	Keywords string `yaml:"keywords" validate:"max=1024"`
}

// Catalog is an immutable candidate pool.
type Catalog struct {
	candidates []domain.Candidate
}

// Load reads the catalog at path, or the built-in pool when path is empty.
func Load(path string) (*Catalog, error) {
	raw := defaultCatalog
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompt catalog: %w", err)
		}
		raw = data
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode prompt catalog: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate prompt catalog", err)
	}

	seen := make(map[string]struct{}, len(f.Prompts))
	candidates := make([]domain.Candidate, 0, len(f.Prompts))
	for _, e := range f.Prompts {
		if _, dup := seen[e.ID]; dup {
			return nil, domain.WrapError(domain.ErrInvalidInput, "validate prompt catalog", fmt.Errorf("duplicate prompt id %q", e.ID))
		}
		seen[e.ID] = struct{}{}
		candidates = append(candidates, domain.Candidate{
			ID:          e.ID,
			DisplayText: strings.TrimSpace(e.Text),
			Theme:       strings.ToLower(strings.TrimSpace(e.Theme)),
			KeywordText: strings.TrimSpace(e.Keywords),
		})
	}
	return &Catalog{candidates: candidates}, nil
}

func (c *Catalog) Candidates() []domain.Candidate {
	out := make([]domain.Candidate, len(c.candidates))
	copy(out, c.candidates)
	return out
}

func (c *Catalog) ListCandidates(context.Context) ([]domain.Candidate, error) {
	return c.Candidates(), nil
}
