package config

import "testing"

func TestConfigBackend(t *testing.T) {
	cases := []struct {
		url  string
		want Backend
	}{
		{"", BackendSQLite},
		{"postgres://u:p@localhost:5432/bar", BackendPostgres},
		{"postgresql://u:p@localhost:5432/bar", BackendPostgres},
		{"POSTGRES://u:p@db/bar", BackendPostgres},
		{"sqlite:///bar_bartender.db", BackendSQLite},
	}
	for _, tc := range cases {
		cfg := Config{DatabaseURL: tc.url}
		if got := cfg.Backend(); got != tc.want {
			t.Fatalf("Backend(%q) = %s, want %s", tc.url, got, tc.want)
		}
	}
}

func TestConfigSQLiteDSN(t *testing.T) {
	cfg := Config{SQLitePath: "default.db"}
	if got := cfg.SQLiteDSN(); got != "default.db" {
		t.Fatalf("expected default path, got %q", got)
	}

	cfg.DatabaseURL = "sqlite:///data/bar.db"
	if got := cfg.SQLiteDSN(); got != "data/bar.db" {
		t.Fatalf("expected stripped sqlite url, got %q", got)
	}

	cfg.DatabaseURL = "/var/lib/bar.db"
	if got := cfg.SQLiteDSN(); got != "/var/lib/bar.db" {
		t.Fatalf("expected raw path, got %q", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "  ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.HTTPPort)
	}
	if cfg.Backend() != BackendSQLite {
		t.Fatalf("expected sqlite backend for blank DATABASE_URL")
	}
	if cfg.OTPRateLimitMax != 3 || cfg.OTPRateLimitWindowMinutes != 10 || cfg.VerifyMaxAttempts != 5 {
		t.Fatalf("unexpected otp limiter defaults: %+v", cfg)
	}
}
