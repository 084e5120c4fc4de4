package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigFlow(t *testing.T) {
	dir := setupTestEnv(t)

	stdout, _, code := runCmd(t, "config", "list-contexts")
	if code != 0 || !strings.Contains(stdout, "No contexts configured") {
		t.Fatalf("list-contexts on empty: exit %d, %s", code, stdout)
	}

	if _, stderr, code := runCmd(t, "config", "add-context", "dev"); code != 0 {
		t.Fatalf("add-context: %s", stderr)
	}
	if _, stderr, code := runCmd(t, "config", "add-context", "dev"); code == 0 || !strings.Contains(stderr, "already exists") {
		t.Fatalf("duplicate add-context: exit %d, %s", code, stderr)
	}
	if _, _, code := runCmd(t, "config", "use-context", "dev"); code != 0 {
		t.Fatal("use-context failed")
	}
	stdout, _, _ = runCmd(t, "config", "current-context")
	if strings.TrimSpace(stdout) != "dev" {
		t.Errorf("current-context = %q", stdout)
	}

	stdout, stderr, code := runCmd(t, "config", "set", "dev", "openai", "api_key", "sk-abcdefghijkl")
	if code != 0 {
		t.Fatalf("set: %s", stderr)
	}
	if strings.Contains(stdout, "sk-abcdefghijkl") || !strings.Contains(stdout, "sk-a*******ijkl") {
		t.Errorf("api key not masked: %s", stdout)
	}
	runCmd(t, "config", "set", "dev", "agent", "voice", "coral")

	stdout, _, code = runCmd(t, "config", "get", "dev", "agent", "voice")
	if code != 0 || strings.TrimSpace(stdout) != "coral" {
		t.Errorf("get voice: exit %d, %q", code, stdout)
	}
	if _, _, code := runCmd(t, "config", "get", "dev", "agent", "nope"); code == 0 {
		t.Error("get of missing key succeeded")
	}
	if _, stderr, code := runCmd(t, "config", "set", "dev", "minimax", "k", "v"); code == 0 || !strings.Contains(stderr, "unknown service") {
		t.Errorf("set unknown service: exit %d, %s", code, stderr)
	}

	data, err := os.ReadFile(filepath.Join(dir, "contexts", "dev", "openai.yaml"))
	if err != nil || !strings.Contains(string(data), "api_key: sk-abcdefghijkl") {
		t.Errorf("openai.yaml = %s, %v", data, err)
	}

	stdout, _, _ = runCmd(t, "config", "ls")
	if !strings.Contains(stdout, "*") || !strings.Contains(stdout, "agent, openai") {
		t.Errorf("list-contexts = %s", stdout)
	}

	if _, _, code := runCmd(t, "config", "delete-context", "dev"); code != 0 {
		t.Fatal("delete-context failed")
	}
	stdout, _, _ = runCmd(t, "config", "current-context")
	if !strings.Contains(stdout, "No current context") {
		t.Errorf("current-context after delete = %q", stdout)
	}
}

func TestMaskKey(t *testing.T) {
	for in, want := range map[string]string{
		"":                "",
		"short":           "*****",
		"sk-1234567890ab": "sk-1*******90ab",
	} {
		if got := maskKey(in); got != want {
			t.Errorf("maskKey(%q) = %q, want %q", in, got, want)
		}
	}
}
