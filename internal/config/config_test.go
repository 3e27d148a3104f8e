package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEOPORTAL_OLLAMA_MODEL", "llama3")
	t.Setenv("GEOPORTAL_WFS_MAX_FEATURES", "25")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.GeoServerURL != "http://localhost:9090/geoserver" || c.GeoServerWorkspace != "ne" {
		t.Fatalf("unexpected geoserver defaults: %+v", c)
	}
	if c.OllamaModel != "llama3" {
		t.Fatalf("env override not applied: %q", c.OllamaModel)
	}
	if c.WFSMaxFeatures != 25 {
		t.Fatalf("wfs_max_features = %d", c.WFSMaxFeatures)
	}
	if filepath.Base(c.UploadDir) != "uploads" {
		t.Fatalf("upload_dir default = %q", c.UploadDir)
	}
	if c.SessionBackend != "memory" {
		t.Fatalf("session_backend = %q", c.SessionBackend)
	}
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.ListenAddr = ":9999"
	c.SessionBackend = "sqlite"
	c.SessionDSN = "/tmp/s.db"
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.ListenAddr != ":9999" || got.SessionBackend != "sqlite" || got.SessionDSN != "/tmp/s.db" {
		t.Fatalf("round trip lost values: %+v", got)
	}
}
