package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.Features != 37 || cfg.Prefetch != 2 || cfg.PollInterval != 10*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
	if f := cfg.Filter(); f.MinElo != 0 || f.MaxEloDiff != 5000 {
		t.Errorf("default filter = %+v", f)
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trainer.yaml")
	content := "min_elo: 1800\nmax_elo_diff: 300\nprefetch: 4\npoll_interval: 30s\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHESSGRAPH_MAX_ELO_DIFF", "150")

	fs := NewFlagSet("test")
	fs.Int("prefetch", 2, "")
	fs.Int("threads", 0, "")
	if err := fs.Parse([]string{"--prefetch=5", "--log-format=json"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"file", cfg.MinElo, int32(1800)},
		{"env over file", cfg.MaxEloDiff, int32(150)},
		{"flag over file", cfg.Prefetch, 5},
		{"unset flag keeps default", cfg.Threads, 0},
		{"duration", cfg.PollInterval, 30 * time.Second},
		{"shared flag", cfg.LogFormat, "json"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_RatingMinAlias(t *testing.T) {
	t.Setenv("CHESSGRAPH_RATING_MIN", "2000")
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MinElo != 2000 {
		t.Errorf("MinElo = %d, want 2000", cfg.MinElo)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
