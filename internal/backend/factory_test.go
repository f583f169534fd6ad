package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"trackit/internal/config"
	"trackit/internal/snapshot/memory"
	"trackit/internal/state"
	"trackit/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", PostgresDSN: "postgres://x"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.PostgresDSN != "postgres://x" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "memory", config: Config{Type: MemoryBackend}},
		{name: "sqlite without path", config: Config{Type: SQLiteBackend}, wantErr: "SQLite database path"},
		{name: "postgres without dsn", config: Config{Type: PostgresBackend}, wantErr: "postgres DSN"},
		{name: "sealed without passphrase", config: Config{Type: SealedBackend, SealedDir: "x"}, wantErr: "passphrase"},
		{name: "unknown", config: Config{Type: "excel"}, wantErr: "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)
	dir := t.TempDir()

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: dir})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if _, ok := res.Store.(*memory.Store); !ok {
			t.Fatalf("store type = %T", res.Store)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "t.db")})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		defer res.Cleanup()
		if _, ok := res.Store.(*storage.Repository); !ok {
			t.Fatalf("store type = %T", res.Store)
		}
		if err := res.Store.Save(ctx, "s1", state.New()); err != nil {
			t.Fatalf("Save: %v", err)
		}
	})

	t.Run("sealed", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: SealedBackend, SealedDir: filepath.Join(dir, "sealed"), SealedPassphrase: "pw"})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if res.Cleanup != nil {
			t.Fatal("sealed backend needs no cleanup")
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend}); err == nil {
			t.Fatal("expected validation error")
		}
	})
}
