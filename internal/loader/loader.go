package loader

import (
	"fmt"
	"os"

	"github.com/sourceplane/processagent/internal/kb"
	"github.com/sourceplane/processagent/internal/model"
	"github.com/sourceplane/processagent/internal/schema"
	"gopkg.in/yaml.v3"
)

// Loader reads part specs and knowledge base documents, validating their
// shape against the bundled schemas before decoding them
type Loader struct {
	validator *schema.Validator
}

// New creates a loader with compiled schemas
func New() (*Loader, error) {
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}
	return &Loader{validator: validator}, nil
}

// LoadPartSpec loads and parses a part spec file (YAML or JSON)
func (l *Loader) LoadPartSpec(path string) (model.PartSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.PartSpec{}, fmt.Errorf("failed to read part spec file: %w", err)
	}
	return l.ParsePartSpec(data)
}

// ParsePartSpec validates and decodes a part spec document
func (l *Loader) ParsePartSpec(data []byte) (model.PartSpec, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return model.PartSpec{}, fmt.Errorf("failed to parse part spec: %w", err)
	}
	if err := l.validator.ValidatePartSpec(doc); err != nil {
		return model.PartSpec{}, fmt.Errorf("part spec failed schema validation: %w", err)
	}

	var spec model.PartSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return model.PartSpec{}, fmt.Errorf("failed to decode part spec: %w", err)
	}
	return spec, nil
}

// LoadKnowledgeBase loads the knowledge base document. An empty path selects
// the bundled default.
func (l *Loader) LoadKnowledgeBase(path string) (*kb.KnowledgeBase, error) {
	if path == "" {
		return l.ParseKnowledgeBase(kb.DefaultDocument())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base file: %w", err)
	}
	return l.ParseKnowledgeBase(data)
}

// ParseKnowledgeBase validates and decodes a knowledge base document
func (l *Loader) ParseKnowledgeBase(data []byte) (*kb.KnowledgeBase, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}
	if err := l.validator.ValidateKnowledgeBase(doc); err != nil {
		return nil, fmt.Errorf("knowledge base failed schema validation: %w", err)
	}
	return kb.Parse(data)
}
