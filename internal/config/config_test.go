package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Server.Port != 20341 {
		t.Fatalf("port=%d", cfg.Server.Port)
	}
	if cfg.Inference.SampleCap != 100 || cfg.Inference.ConfidenceThreshold != 0.6 {
		t.Fatalf("inference=%+v", cfg.Inference)
	}
}

func TestConfigUnmarshal(t *testing.T) {
	t.Parallel()

	data := []byte(`
[server]
port = 9000
dev_mode = true

[inference]
sample_cap = 50
confidence_threshold = 0.8
`)

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if cfg.Server.Port != 9000 || !cfg.Server.DevMode {
		t.Fatalf("server=%+v", cfg.Server)
	}
	if cfg.Inference.SampleCap != 50 || cfg.Inference.ConfidenceThreshold != 0.8 {
		t.Fatalf("inference=%+v", cfg.Inference)
	}
	// 未出现的段保持默认
	if cfg.Data.DataDir != "data" {
		t.Fatalf("data=%+v", cfg.Data)
	}

	if !isPortSpecifiedInToml(data) {
		t.Fatalf("port should be detected as specified")
	}
	if isPortSpecifiedInToml([]byte("[data]\ndata_dir = \"x\"\n")) {
		t.Fatalf("port should not be detected")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 23456
	cfg.Inference.SampleCap = 42

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	exeDir, err := GetExeDir()
	if err != nil {
		t.Fatalf("GetExeDir failed: %v", err)
	}
	t.Cleanup(func() { os.Remove(filepath.Join(exeDir, "config.toml")) })

	loaded, info, err := LoadConfigWithInfo()
	if err != nil {
		t.Fatalf("LoadConfigWithInfo failed: %v", err)
	}
	if loaded.Server.Port != 23456 || loaded.Inference.SampleCap != 42 {
		t.Fatalf("loaded=%+v", loaded)
	}
	if !info.PortSpecified {
		t.Fatalf("port should be reported as specified")
	}
}
