package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sbs27/salespipe/cli/config"
)

// testContext runs a throwaway app so helpers see parsed flags.
func testContext(t *testing.T, flags []cli.Flag, args []string) *cli.Context {
	t.Helper()

	var captured *cli.Context
	app := &cli.App{
		Flags: flags,
		Action: func(c *cli.Context) error {
			captured = c
			return nil
		},
	}
	if err := app.Run(append([]string{"test"}, args...)); err != nil {
		t.Fatalf("app.Run() error = %v", err)
	}
	if captured == nil {
		t.Fatal("action never ran")
	}
	return captured
}

func TestResolveString(t *testing.T) {
	flags := []cli.Flag{&cli.StringFlag{Name: "csv", Value: "flag-default"}}

	tests := []struct {
		name        string
		args        []string
		configValue string
		want        string
	}{
		{
			name:        "flag set wins over config",
			args:        []string{"--csv", "from-flag"},
			configValue: "from-config",
			want:        "from-flag",
		},
		{
			name:        "config wins over flag default",
			args:        nil,
			configValue: "from-config",
			want:        "from-config",
		},
		{
			name:        "flag default when config empty",
			args:        nil,
			configValue: "",
			want:        "flag-default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testContext(t, flags, tt.args)
			got := resolveString(c, "csv", tt.configValue)
			if got != tt.want {
				t.Errorf("resolveString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveInt(t *testing.T) {
	flags := []cli.Flag{&cli.IntFlag{Name: "max-retries", Value: 5}}

	tests := []struct {
		name        string
		args        []string
		configValue int
		want        int
	}{
		{name: "flag set wins", args: []string{"--max-retries", "9"}, configValue: 3, want: 9},
		{name: "config wins over default", args: nil, configValue: 3, want: 3},
		{name: "zero config falls to default", args: nil, configValue: 0, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testContext(t, flags, tt.args)
			got := resolveInt(c, "max-retries", tt.configValue)
			if got != tt.want {
				t.Errorf("resolveInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveDuration(t *testing.T) {
	flags := []cli.Flag{&cli.DurationFlag{Name: "retry-delay", Value: 2 * time.Second}}

	c := testContext(t, flags, []string{"--retry-delay", "7s"})
	if got := resolveDuration(c, "retry-delay", time.Minute); got != 7*time.Second {
		t.Errorf("resolveDuration() = %v, want 7s", got)
	}

	c = testContext(t, flags, nil)
	if got := resolveDuration(c, "retry-delay", time.Minute); got != time.Minute {
		t.Errorf("resolveDuration() = %v, want 1m", got)
	}
	if got := resolveDuration(c, "retry-delay", 0); got != 2*time.Second {
		t.Errorf("resolveDuration() = %v, want flag default 2s", got)
	}
}

func TestValidateDriver(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql"} {
		if err := validateDriver(driver); err != nil {
			t.Errorf("validateDriver(%q) error = %v, want nil", driver, err)
		}
	}

	err := validateDriver("oracle")
	if err == nil {
		t.Fatal("validateDriver(oracle) error = nil, want error")
	}
	if !strings.Contains(err.Error(), "oracle") {
		t.Errorf("error %q should name the bad driver", err)
	}
}

func TestValidateBackend(t *testing.T) {
	for _, backend := range []string{"fs", "s3", "memory", "none", ""} {
		if err := validateBackend(backend); err != nil {
			t.Errorf("validateBackend(%q) error = %v, want nil", backend, err)
		}
	}
	if err := validateBackend("tape"); err == nil {
		t.Error("validateBackend(tape) error = nil, want error")
	}
}

func TestBackendLabel(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{"", "none"},
		{"none", "none"},
		{"fs", "fs"},
		{"s3", "s3"},
		{"memory", "memory"},
	}
	for _, tt := range tests {
		if got := backendLabel(tt.backend); got != tt.want {
			t.Errorf("backendLabel(%q) = %q, want %q", tt.backend, got, tt.want)
		}
	}
}

func TestBuildSinkConfig_FlagsOverConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.Host = "db.internal"
	cfg.Sink.Port = 5433
	cfg.Sink.MaxRetries = 3

	c := testContext(t, sinkFlags(), []string{
		"--sink-host", "localhost",
		"--retry-delay", "1s",
	})

	got := buildSinkConfig(c, cfg, "postgres")
	if got.Host != "localhost" {
		t.Errorf("Host = %q, want flag value localhost", got.Host)
	}
	if got.Port != 5433 {
		t.Errorf("Port = %d, want config value 5433", got.Port)
	}
	if got.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want config value 3", got.MaxRetries)
	}
	if got.RetryDelay != time.Second {
		t.Errorf("RetryDelay = %v, want flag value 1s", got.RetryDelay)
	}
	if got.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", got.Driver)
	}
}

func TestBuildAdapters_NoneConfigured(t *testing.T) {
	adapters, err := buildAdapters(config.AdaptersConfig{})
	if err != nil {
		t.Fatalf("buildAdapters() error = %v", err)
	}
	if adapters != nil {
		t.Errorf("buildAdapters() = %v, want nil when nothing is configured", adapters)
	}
}

func TestBuildAdapters_Webhook(t *testing.T) {
	adapters, err := buildAdapters(config.AdaptersConfig{
		Webhook: &config.WebhookConfig{URL: "http://localhost:9999/hook"},
	})
	if err != nil {
		t.Fatalf("buildAdapters() error = %v", err)
	}
	if adapters == nil {
		t.Fatal("buildAdapters() = nil, want webhook adapter")
	}
	if err := adapters.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewRunID(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	id := NewRunID(now)

	if !strings.HasPrefix(id, "run-20240315-103000-") {
		t.Errorf("NewRunID() = %q, want run-20240315-103000-<suffix>", id)
	}
	if other := NewRunID(now); other == id {
		t.Errorf("two IDs from the same instant collide: %q", id)
	}
}

func TestBuildStack_InvalidDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.Driver = "sqlite"

	c := testContext(t, joinFlags(sinkFlags(), archiveFlags(), []cli.Flag{logLevelFlag()}), nil)
	if _, err := buildStack(c, cfg); err == nil {
		t.Error("buildStack() error = nil, want invalid driver error")
	}
}

func TestBuildStack_MemoryArchive(t *testing.T) {
	cfg := config.Default()
	cfg.Archive.Backend = "memory"

	c := testContext(t, joinFlags(sinkFlags(), archiveFlags(), []cli.Flag{logLevelFlag()}), nil)
	stack, err := buildStack(c, cfg)
	if err != nil {
		t.Fatalf("buildStack() error = %v", err)
	}
	defer stack.close()

	if stack.archive == nil {
		t.Error("archive = nil, want memory-backed archive")
	}
	if stack.adapters != nil {
		t.Errorf("adapters = %v, want nil", stack.adapters)
	}
	if stack.collector == nil {
		t.Error("collector = nil, want collector")
	}
}
