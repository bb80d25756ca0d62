package settings

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ignite/outreach-timeline/internal/domain"
)

// fileDocument is the YAML layout: per-org settings plus an optional
// default used for orgs without their own entry.
type fileDocument struct {
	Default       *domain.Settings           `yaml:"default"`
	Organizations map[string]domain.Settings `yaml:"organizations"`
}

// FileSource reads settings from a YAML file on every Load, so edits are
// picked up once the cache entry is invalidated or expires.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed settings source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Load(_ context.Context, orgID string) (*domain.Settings, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidSettings, f.path, err)
	}

	if st, ok := doc.Organizations[orgID]; ok {
		return prepare(orgID, &st)
	}
	if doc.Default != nil {
		st := *doc.Default
		return prepare(orgID, &st)
	}
	return nil, fmt.Errorf("%w: org %s in %s", ErrSettingsNotFound, orgID, f.path)
}
