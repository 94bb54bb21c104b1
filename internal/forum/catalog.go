package forum

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	forumrepo "github.com/baldboard/baldboard-backend/internal/data/repos/forum"
	types "github.com/baldboard/baldboard-backend/internal/domain"
	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
	"github.com/baldboard/baldboard-backend/internal/platform/logger"
)

//go:embed personas.yaml
var defaultPersonaYAML []byte

type personaFile struct {
	Personas []personaSpec `yaml:"personas"`
}

type personaSpec struct {
	Name         string `yaml:"name"`
	SystemPrompt string `yaml:"system_prompt"`
}

// Catalog seeds and serves the persona roster. Seeding is create-if-missing
// by name, so redeploys never duplicate personas and operator edits to
// prompts in the database survive restarts.
type Catalog struct {
	personas forumrepo.PersonaRepo
	log      *logger.Logger
}

func NewCatalog(personas forumrepo.PersonaRepo, baseLog *logger.Logger) *Catalog {
	return &Catalog{personas: personas, log: baseLog.With("component", "forum.Catalog")}
}

// Seed loads the persona roster from FORUM_PERSONA_FILE when set, otherwise
// from the embedded default, and creates any persona not already present.
func (c *Catalog) Seed(dbc dbctx.Context) error {
	raw := defaultPersonaYAML
	if path := os.Getenv("FORUM_PERSONA_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read persona file: %w", err)
		}
		raw = b
	}

	var file personaFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse persona yaml: %w", err)
	}
	if len(file.Personas) == 0 {
		return fmt.Errorf("persona yaml defines no personas")
	}

	created := 0
	for _, spec := range file.Personas {
		if spec.Name == "" || spec.SystemPrompt == "" {
			return fmt.Errorf("persona entry missing name or system_prompt")
		}
		existing, err := c.personas.GetByName(dbc, spec.Name)
		if err != nil {
			return fmt.Errorf("lookup persona %q: %w", spec.Name, err)
		}
		if existing != nil {
			continue
		}
		_, err = c.personas.Create(dbc, []*types.ForumPersona{{
			Name:         spec.Name,
			SystemPrompt: spec.SystemPrompt,
			IsActive:     true,
		}})
		if err != nil {
			return fmt.Errorf("create persona %q: %w", spec.Name, err)
		}
		created++
	}
	c.log.Info("persona catalog seeded", "total", len(file.Personas), "created", created)
	return nil
}

// ListActive returns the personas eligible for scheduling.
func (c *Catalog) ListActive(dbc dbctx.Context) ([]*types.ForumPersona, error) {
	return c.personas.ListActive(dbc)
}
