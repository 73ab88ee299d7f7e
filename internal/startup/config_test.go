package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"visionvault/internal/tagstore"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		t.Setenv(EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), "")
	}
	for _, legacy := range legacyEnv {
		t.Setenv(legacy, "")
	}
	for _, name := range os.Environ() {
		if k, _, _ := strings.Cut(name, "="); strings.HasPrefix(k, EnvPrefix+"_") {
			t.Setenv(k, "")
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("MEDIA_DIR")
	os.Unsetenv("VISIONVAULT_MEDIA_DIR")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MediaDir != "/media" && cfg.MediaDir != filepath.Clean("/media") {
		t.Errorf("MediaDir = %q", cfg.MediaDir)
	}
	if cfg.Port != "8080" || cfg.MetricsPort != "9090" {
		t.Errorf("ports = %s, %s", cfg.Port, cfg.MetricsPort)
	}
	if cfg.SweepInterval != 30*time.Minute || cfg.PollInterval != 30*time.Second {
		t.Errorf("intervals = %v, %v", cfg.SweepInterval, cfg.PollInterval)
	}
	if !cfg.SweepOnStart || !cfg.Watch || !cfg.MetricsEnabled || !cfg.LogHealthChecks || cfg.LogStaticFiles {
		t.Errorf("flags = %+v", cfg)
	}
	if cfg.Store.DirFile != tagstore.DefaultDirFileName || cfg.Store.RootFile != tagstore.DefaultRootFileName {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Captioner.Endpoint != "" || cfg.Captioner.Timeout != time.Minute {
		t.Errorf("Captioner = %+v", cfg.Captioner)
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	t.Setenv("MEDIA_DIR", "/ignored")
	t.Setenv("VISIONVAULT_MEDIA_DIR", dir)
	t.Setenv("PORT", "8181")
	t.Setenv("INDEX_INTERVAL", "0")
	t.Setenv("VISIONVAULT_POLL_INTERVAL", "5s")
	t.Setenv("VISIONVAULT_WATCH", "false")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("VISIONVAULT_CAPTIONER_ENDPOINT", "http://localhost:11434/v1")
	t.Setenv("VISIONVAULT_CAPTIONER_TIMEOUT", "15s")
	t.Setenv("VISIONVAULT_STORE_DIR_FILE", ".labels")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MediaDir != dir {
		t.Errorf("MediaDir = %q, want prefixed value %q", cfg.MediaDir, dir)
	}
	if cfg.Port != "8181" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.SweepInterval != 0 || cfg.PollInterval != 5*time.Second {
		t.Errorf("intervals = %v, %v", cfg.SweepInterval, cfg.PollInterval)
	}
	if cfg.Watch {
		t.Error("Watch should be false")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Captioner.Endpoint != "http://localhost:11434/v1" || cfg.Captioner.Timeout != 15*time.Second {
		t.Errorf("Captioner = %+v", cfg.Captioner)
	}
	if opts := cfg.TagStoreOptions(); opts.DirFileName != ".labels" || opts.RootFileName != tagstore.DefaultRootFileName {
		t.Errorf("TagStoreOptions() = %+v", opts)
	}
	if cc := cfg.CaptionerClientConfig(); cc.Timeout != 15*time.Second {
		t.Errorf("CaptionerClientConfig() = %+v", cc)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "visionvault.yaml")
	content := "media_dir: " + dir + "\n" +
		"port: \"9000\"\n" +
		"sweep_on_start: false\n" +
		"captioner:\n" +
		"  model: llava\n" +
		"  max_dimension: 512\n" +
		"store:\n" +
		"  cache_size: 16\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("VISIONVAULT_PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MediaDir != dir || cfg.SweepOnStart {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Port != "9100" {
		t.Errorf("Port = %q, environment should win over the file", cfg.Port)
	}
	if cfg.Captioner.Model != "llava" || cfg.Captioner.MaxDimension != 512 || cfg.Store.CacheSize != 16 {
		t.Errorf("nested values = %+v %+v", cfg.Captioner, cfg.Store)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non numeric port", "VISIONVAULT_PORT", "http"},
		{"zero poll interval", "VISIONVAULT_POLL_INTERVAL", "0s"},
		{"bad log level", "VISIONVAULT_LOG_LEVEL", "loud"},
		{"bad endpoint", "VISIONVAULT_CAPTIONER_ENDPOINT", "not a url"},
		{"visible store file", "VISIONVAULT_STORE_DIR_FILE", "tags"},
		{"store file in subdir", "VISIONVAULT_STORE_ROOT_FILE", ".x/index"},
		{"same store names", "VISIONVAULT_STORE_ROOT_FILE", ".tags"},
		{"tiny max dimension", "VISIONVAULT_CAPTIONER_MAX_DIMENSION", "8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("VISIONVAULT_MEDIA_DIR", t.TempDir())
			t.Setenv(tt.key, tt.val)
			if _, err := Load(""); err == nil {
				t.Errorf("Load() with %s=%q should fail", tt.key, tt.val)
			}
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() with a missing explicit config file should fail")
	}
}

func TestLoadConfigCreatesMediaDir(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "media")
	t.Setenv("VISIONVAULT_MEDIA_DIR", dir)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if info, err := os.Stat(cfg.MediaDir); err != nil || !info.IsDir() {
		t.Errorf("media directory not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
		t.Error("write test file left behind")
	}
}

func TestLoadConfigRejectsFile(t *testing.T) {
	clearEnv(t)
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("VISIONVAULT_MEDIA_DIR", file)

	if _, err := LoadConfig(""); err == nil {
		t.Error("LoadConfig() with a file as media dir should fail")
	}
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	if info.Version == "" || info.GoVersion == "" || info.OS == "" || info.Arch == "" {
		t.Errorf("GetBuildInfo() = %+v", info)
	}
	if info.GoVersion != GoVersion {
		t.Errorf("GoVersion = %s, want %s", info.GoVersion, GoVersion)
	}
}

func TestGetRoutesAndGroups(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/search", func(_ http.ResponseWriter, _ *http.Request) {}).Methods("GET")
	r.HandleFunc("/api/files/{path:.*}", func(_ http.ResponseWriter, _ *http.Request) {}).Methods("GET", "HEAD")
	r.HandleFunc("/healthz", func(_ http.ResponseWriter, _ *http.Request) {})

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 4 {
		t.Errorf("GetRoutes() returned %d routes, want 4: %+v", len(routes), routes)
	}

	tests := map[string]string{
		"/api/search":          "api/search",
		"/api/files/{path:.*}": "api/files",
		"/healthz":             "healthz",
		"/":                    "",
	}
	for path, want := range tests {
		if got := getRouteGroup(path); got != want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", path, got, want)
		}
	}
}
