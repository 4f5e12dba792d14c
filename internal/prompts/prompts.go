// Package prompts holds the classifier system prompts and the per-category
// instruction templates handed to the RAG engine.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xaenox/billing-assistant/internal/models"
)

//go:embed templates/*.txt
var templateFS embed.FS

// SystemKey is the override key replacing the classifier system prompt.
const SystemKey = "system"

type Composer struct {
	profile   models.Profile
	system    string
	templates map[models.Category]string
}

// NewComposer loads the built-in templates for profile and replaces those
// named in overrides (category tag or SystemKey to file path).
func NewComposer(profile models.Profile, overrides map[string]string) (*Composer, error) {
	c := &Composer{
		profile:   profile,
		templates: make(map[models.Category]string, len(models.Categories)),
	}

	var err error
	if c.system, err = builtin("system-" + string(profile)); err != nil {
		return nil, err
	}
	generic, err := builtin("generic-query-" + string(profile))
	if err != nil {
		return nil, err
	}
	for _, category := range models.Categories {
		switch category {
		case models.CategoryGenericQuery, models.CategoryStatusClarification:
			c.templates[category] = generic
		default:
			if c.templates[category], err = builtin(string(category)); err != nil {
				return nil, err
			}
		}
	}

	for key, path := range overrides {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt override %s: %w", key, err)
		}
		if key == SystemKey {
			c.system = string(b)
			continue
		}
		category, err := models.ParseCategory(key)
		if err != nil {
			return nil, fmt.Errorf("prompt override: %w", err)
		}
		c.templates[category] = string(b)
	}
	return c, nil
}

func builtin(name string) (string, error) {
	b, err := templateFS.ReadFile("templates/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("missing built-in prompt %s: %w", name, err)
	}
	return string(b), nil
}

func (c *Composer) Profile() models.Profile {
	return c.profile
}

// SystemPrompt is the classifier instruction of the composer's profile.
func (c *Composer) SystemPrompt() string {
	return c.system
}

// Base returns the unmodified template of category.
func (c *Composer) Base(category models.Category) string {
	return c.templates[category]
}

// Compose appends data as a double backtick delimited JSON block to the
// template of category. A nil data returns the bare template.
func (c *Composer) Compose(category models.Category, data any) string {
	base := c.Base(category)
	if data == nil {
		return base
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return base
	}
	return base + " ``" + strings.TrimSuffix(buf.String(), "\n") + "`` \n"
}
