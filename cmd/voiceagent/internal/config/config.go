// Package config stores voiceagent CLI settings.
//
// Configuration lives under os.UserConfigDir()/voiceagent/, or under
// $VOICEAGENT_CONFIG_DIR when set:
//
//	voiceagent/
//	├── current-context          # plain text: name of current context
//	└── contexts/
//	    ├── dev/
//	    │   ├── openai.yaml
//	    │   └── agent.yaml
//	    └── demo/
//	        └── ...
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	appDir             = "voiceagent"
	currentContextFile = "current-context"
	contextsDir        = "contexts"

	// EnvConfigDir overrides the configuration root.
	EnvConfigDir = "VOICEAGENT_CONFIG_DIR"
)

// Config is the root configuration state.
type Config struct {
	Dir            string
	CurrentContext string
}

// Load loads the configuration from $VOICEAGENT_CONFIG_DIR or the OS
// config directory.
func Load() (*Config, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return LoadFrom(dir)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return LoadFrom(filepath.Join(base, appDir))
}

// LoadFrom loads the configuration rooted at dir. The directory need not
// exist yet.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{Dir: dir}
	data, err := os.ReadFile(filepath.Join(dir, currentContextFile))
	if err == nil {
		cfg.CurrentContext = strings.TrimSpace(string(data))
	}
	return cfg, nil
}

var contextName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateContextName rejects names that are not safe as a directory name.
func ValidateContextName(name string) error {
	if name == "" {
		return fmt.Errorf("context name cannot be empty")
	}
	if !contextName.MatchString(name) {
		return fmt.Errorf("invalid context name %q: use letters, digits, '.', '_' or '-'", name)
	}
	return nil
}

func (c *Config) ContextsDir() string {
	return filepath.Join(c.Dir, contextsDir)
}

func (c *Config) ContextDir(name string) string {
	return filepath.Join(c.Dir, contextsDir, name)
}

// ResolveContext returns the directory for the named context, or for the
// current context if name is empty. ok is false when neither exists; the
// caller then runs on defaults and environment variables.
func (c *Config) ResolveContext(name string) (dir string, ok bool, err error) {
	if name == "" {
		if c.CurrentContext == "" {
			return "", false, nil
		}
		name = c.CurrentContext
	}
	if err := ValidateContextName(name); err != nil {
		return "", false, err
	}
	dir = c.ContextDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", false, fmt.Errorf("context %q not found", name)
	}
	return dir, true, nil
}

// ListContexts returns the names of all contexts.
func (c *Config) ListContexts() ([]string, error) {
	entries, err := os.ReadDir(c.ContextsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// AddContext creates a context directory.
func (c *Config) AddContext(name string) error {
	if err := ValidateContextName(name); err != nil {
		return err
	}
	dir := c.ContextDir(name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("context %q already exists", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create context %q: %w", name, err)
	}
	return nil
}

// DeleteContext removes a context and its service files.
func (c *Config) DeleteContext(name string) error {
	if err := ValidateContextName(name); err != nil {
		return err
	}
	dir := c.ContextDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("context %q not found", name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete context %q: %w", name, err)
	}
	if c.CurrentContext == name {
		c.CurrentContext = ""
		return c.saveCurrentContext()
	}
	return nil
}

// UseContext switches the current context.
func (c *Config) UseContext(name string) error {
	if err := ValidateContextName(name); err != nil {
		return err
	}
	if _, err := os.Stat(c.ContextDir(name)); os.IsNotExist(err) {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.saveCurrentContext()
}

func (c *Config) saveCurrentContext() error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(filepath.Join(c.Dir, currentContextFile), []byte(c.CurrentContext+"\n"), 0o644)
}
