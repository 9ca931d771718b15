package database

import (
	stderrors "errors"
	"testing"

	"gorm.io/gorm"

	"github.com/kbukum/voicenotes/errors"
)

func TestConfigDefaults(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantOpen int
	}{
		{"file", Config{DSN: "notes.db"}, 4},
		{"memory", Config{DSN: "file::memory:"}, 1},
		{"memory mode", Config{DSN: "file:x?mode=memory&cache=shared", MaxOpenConns: 8}, 1},
		{"explicit", Config{DSN: "notes.db", MaxOpenConns: 8, MaxIdleConns: 2}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			if cfg.MaxOpenConns != tt.wantOpen {
				t.Errorf("MaxOpenConns = %d, want %d", cfg.MaxOpenConns, tt.wantOpen)
			}
			if cfg.MaxIdleConns > cfg.MaxOpenConns {
				t.Errorf("MaxIdleConns %d > MaxOpenConns %d", cfg.MaxIdleConns, cfg.MaxOpenConns)
			}
			cfg.Enabled = true
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Enabled: true, DSN: "x.db", LogLevel: "loud"}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid log level error")
	}
	disabled := Config{}
	if err := disabled.Validate(); err != nil {
		t.Errorf("disabled config should validate: %v", err)
	}
}

func TestFromDatabase(t *testing.T) {
	if FromDatabase(nil) != nil {
		t.Error("nil error should map to nil")
	}
	if got := FromDatabase(gorm.ErrDuplicatedKey); got.Code != errors.ErrCodeConflict {
		t.Errorf("duplicate code = %s", got.Code)
	}
	busy := FromDatabase(stderrors.New("database is locked"))
	if busy.Code != errors.ErrCodeDatabaseError || !busy.Retryable {
		t.Errorf("busy = %+v", busy)
	}
	notFound := errors.NoteNotFound("1")
	if FromDatabase(notFound) != notFound {
		t.Error("AppError should pass through")
	}
	if !IsNotFound(gorm.ErrRecordNotFound) {
		t.Error("IsNotFound")
	}
}
