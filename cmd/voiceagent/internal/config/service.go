package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Service names.
const (
	ServiceOpenAI = "openai"
	ServiceAgent  = "agent"
)

// EnvOpenAIKey fills OpenAI.APIKey when the config has none.
const EnvOpenAIKey = "OPENAI_API_KEY"

// OpenAI is the openai.yaml service file.
type OpenAI struct {
	APIKey       string `yaml:"api_key,omitempty"`
	Organization string `yaml:"organization,omitempty"`
	Project      string `yaml:"project,omitempty"`
	Model        string `yaml:"model,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty"`
}

// Agent is the agent.yaml service file.
type Agent struct {
	Voice string `yaml:"voice,omitempty"`

	// TokenURL is the ephemeral token endpoint tried before the direct
	// provider request.
	TokenURL string `yaml:"token_url,omitempty"`

	// KnowledgeBase is a YAML or JSON knowledge base file. Relative paths
	// resolve against the context directory.
	KnowledgeBase string `yaml:"knowledge_base,omitempty"`

	// HistoryDir stores conversation history. Defaults to "history" in the
	// context directory, or in the config root without a context.
	HistoryDir string `yaml:"history_dir,omitempty"`
}

// ServicePath returns the YAML file for a service within the named context.
func (c *Config) ServicePath(context, service string) string {
	return filepath.Join(c.ContextDir(context), service+".yaml")
}

// LoadService loads "{contextDir}/{service}.yaml".
func LoadService[T any](contextDir, service string) (*T, error) {
	path := filepath.Join(contextDir, service+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("service config %q not found in context (expected: %s): %w", service, path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &v, nil
}

// SaveService writes "{contextDir}/{service}.yaml".
func SaveService[T any](contextDir, service string, v *T) error {
	if err := os.MkdirAll(contextDir, 0o755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s config: %w", service, err)
	}
	path := filepath.Join(contextDir, service+".yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ListServices returns the services configured in a context directory.
func ListServices(contextDir string) ([]string, error) {
	entries, err := os.ReadDir(contextDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list services: %w", err)
	}
	var services []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext == ".yaml" || ext == ".yml" {
			services = append(services, strings.TrimSuffix(name, ext))
		}
	}
	return services, nil
}

// Resolved is the effective configuration of one run.
type Resolved struct {
	// Context is the context directory, empty when none is in use.
	Context string
	OpenAI  OpenAI
	Agent   Agent
}

// Resolve loads the named (or current) context's services and applies
// environment fallbacks. Missing service files are not an error.
func (c *Config) Resolve(name string) (*Resolved, error) {
	dir, ok, err := c.ResolveContext(name)
	if err != nil {
		return nil, err
	}
	r := &Resolved{Context: dir}
	if ok {
		if err := loadOptional(dir, ServiceOpenAI, &r.OpenAI); err != nil {
			return nil, err
		}
		if err := loadOptional(dir, ServiceAgent, &r.Agent); err != nil {
			return nil, err
		}
	}
	if r.OpenAI.APIKey == "" {
		r.OpenAI.APIKey = os.Getenv(EnvOpenAIKey)
	}

	base := c.Dir
	if ok {
		base = dir
	}
	if r.Agent.HistoryDir == "" {
		r.Agent.HistoryDir = filepath.Join(base, "history")
	} else if !filepath.IsAbs(r.Agent.HistoryDir) {
		r.Agent.HistoryDir = filepath.Join(base, r.Agent.HistoryDir)
	}
	if r.Agent.KnowledgeBase != "" && !filepath.IsAbs(r.Agent.KnowledgeBase) {
		r.Agent.KnowledgeBase = filepath.Join(base, r.Agent.KnowledgeBase)
	}
	return r, nil
}

func loadOptional[T any](dir, service string, dst *T) error {
	v, err := LoadService[T](dir, service)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	*dst = *v
	return nil
}
