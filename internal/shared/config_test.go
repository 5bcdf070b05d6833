package shared

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Matching.Threshold != 0.85 {
		t.Errorf("expected threshold 0.85, got %v", config.Matching.Threshold)
	}
	if config.Matching.Margin != 0.05 {
		t.Errorf("expected margin 0.05, got %v", config.Matching.Margin)
	}
	if config.Matching.ExactCutoff != 0.98 {
		t.Errorf("expected exact cutoff 0.98, got %v", config.Matching.ExactCutoff)
	}
	if config.Workflow.Mode != "standalone" {
		t.Errorf("expected standalone mode, got %q", config.Workflow.Mode)
	}
	if config.Workflow.TimeoutBudgetSeconds != 55 {
		t.Errorf("expected 55s budget, got %d", config.Workflow.TimeoutBudgetSeconds)
	}
	if config.Temporal.TaskQueue == "" {
		t.Error("expected a default task queue")
	}
	if config.Server.Port == 0 {
		t.Error("expected a default server port")
	}
}

func TestLoadAndSaveConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	config.Credentials.Spotify.ClientID = "abc123"
	config.Credentials.Spotify.AccessToken = "tok"
	if err := SaveConfig(path, config); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Credentials.Spotify.ClientID != "abc123" {
		t.Errorf("client id not persisted, got %q", reloaded.Credentials.Spotify.ClientID)
	}
	if reloaded.Credentials.Spotify.AccessToken != "tok" {
		t.Errorf("token not persisted, got %q", reloaded.Credentials.Spotify.AccessToken)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("saved config should be 0600, got %v", info.Mode().Perm())
	}
}

func TestCreateConfigFileRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := CreateConfigFile(path); err == nil {
		t.Error("expected error on existing file")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWorkflowID(t *testing.T) {
	now := time.Unix(1724500000, 0)

	t.Run("format", func(t *testing.T) {
		id := WorkflowID("user42", now)
		pattern := regexp.MustCompile(`^sync-user42-1724500000-[0-9a-f]{5}$`)
		if !pattern.MatchString(id) {
			t.Errorf("unexpected id format: %q", id)
		}
	})

	t.Run("empty requester defaults to anonymous", func(t *testing.T) {
		id := WorkflowID("", now)
		pattern := regexp.MustCompile(`^sync-anonymous-1724500000-[0-9a-f]{5}$`)
		if !pattern.MatchString(id) {
			t.Errorf("unexpected id format: %q", id)
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			id := WorkflowID("u", now)
			if seen[id] {
				t.Fatalf("duplicate id %q", id)
			}
			seen[id] = true
		}
	})
}
