package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func newConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestLoad_EnvDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	os.WriteFile(filepath.Join(dir, currentContextFile), []byte("demo\n"), 0o644)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir != dir || cfg.CurrentContext != "demo" {
		t.Errorf("Load = %+v", cfg)
	}
}

func TestContexts(t *testing.T) {
	cfg := newConfig(t)
	if names, err := cfg.ListContexts(); err != nil || len(names) != 0 {
		t.Fatalf("ListContexts on empty = %v, %v", names, err)
	}
	for _, n := range []string{"dev", "prod"} {
		if err := cfg.AddContext(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := cfg.AddContext("dev"); err == nil {
		t.Error("duplicate AddContext succeeded")
	}
	for _, bad := range []string{"", "../x", "a/b", ".hidden"} {
		if err := cfg.AddContext(bad); err == nil {
			t.Errorf("AddContext(%q) succeeded", bad)
		}
	}
	names, _ := cfg.ListContexts()
	if !slices.Equal(names, []string{"dev", "prod"}) {
		t.Errorf("ListContexts = %v", names)
	}

	if err := cfg.UseContext("dev"); err != nil {
		t.Fatal(err)
	}
	reloaded, _ := LoadFrom(cfg.Dir)
	if reloaded.CurrentContext != "dev" {
		t.Errorf("current context not persisted: %q", reloaded.CurrentContext)
	}
	if err := cfg.UseContext("nope"); err == nil {
		t.Error("UseContext of missing context succeeded")
	}
	if err := cfg.DeleteContext("dev"); err != nil {
		t.Fatal(err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("current context after delete = %q", cfg.CurrentContext)
	}
}

func TestServiceRoundTrip(t *testing.T) {
	cfg := newConfig(t)
	cfg.AddContext("dev")
	dir := cfg.ContextDir("dev")

	in := &OpenAI{APIKey: "sk-test", Model: "gpt-realtime"}
	if err := SaveService(dir, ServiceOpenAI, in); err != nil {
		t.Fatal(err)
	}
	out, err := LoadService[OpenAI](dir, ServiceOpenAI)
	if err != nil {
		t.Fatal(err)
	}
	if *out != *in {
		t.Errorf("LoadService = %+v, want %+v", out, in)
	}
	services, _ := ListServices(dir)
	if !slices.Equal(services, []string{"openai"}) {
		t.Errorf("ListServices = %v", services)
	}
	if _, err := LoadService[Agent](dir, ServiceAgent); err == nil {
		t.Error("LoadService of missing file succeeded")
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "sk-env")
	cfg := newConfig(t)

	r, err := cfg.Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if r.Context != "" || r.OpenAI.APIKey != "sk-env" {
		t.Errorf("Resolve without context = %+v", r)
	}
	if r.Agent.HistoryDir != filepath.Join(cfg.Dir, "history") {
		t.Errorf("HistoryDir = %q", r.Agent.HistoryDir)
	}

	cfg.AddContext("dev")
	cfg.UseContext("dev")
	dir := cfg.ContextDir("dev")
	SaveService(dir, ServiceOpenAI, &OpenAI{APIKey: "sk-file"})
	SaveService(dir, ServiceAgent, &Agent{Voice: "coral", KnowledgeBase: "kb.yaml", HistoryDir: "/var/lib/va"})

	r, err = cfg.Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if r.Context != dir || r.OpenAI.APIKey != "sk-file" || r.Agent.Voice != "coral" {
		t.Errorf("Resolve = %+v", r)
	}
	if r.Agent.KnowledgeBase != filepath.Join(dir, "kb.yaml") || r.Agent.HistoryDir != "/var/lib/va" {
		t.Errorf("paths = %q, %q", r.Agent.KnowledgeBase, r.Agent.HistoryDir)
	}

	if _, err := cfg.Resolve("missing"); err == nil {
		t.Error("Resolve of missing context succeeded")
	}
}

func TestResolve_BadServiceFile(t *testing.T) {
	cfg := newConfig(t)
	cfg.AddContext("dev")
	os.WriteFile(cfg.ServicePath("dev", ServiceAgent), []byte("voice: [\n"), 0o644)
	if _, err := cfg.Resolve("dev"); err == nil {
		t.Error("Resolve with malformed agent.yaml succeeded")
	}
}
