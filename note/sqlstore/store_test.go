package sqlstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kbukum/voicenotes/component"
	"github.com/kbukum/voicenotes/database"
	"github.com/kbukum/voicenotes/database/migration"
	"github.com/kbukum/voicenotes/errors"
	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/note"
)

func newTestStore(t *testing.T, seed bool) *Store {
	t.Helper()
	ctx := context.Background()
	comp := database.NewComponent(database.Config{
		Enabled:  true,
		DSN:      "file::memory:",
		LogLevel: "silent",
	}, logger.Nop()).WithMigrations(Migrations)
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = comp.Stop(context.Background()) })

	if h := comp.Health(ctx); h.Status != component.StatusHealthy {
		t.Fatalf("health = %+v", h)
	}
	store := New(comp.DB())
	if seed {
		if err := store.SeedIfEmpty(ctx); err != nil {
			t.Fatalf("SeedIfEmpty: %v", err)
		}
	}
	return store
}

func titles(notes []note.Note) string {
	out := make([]string, len(notes))
	for i := range notes {
		out[i] = notes[i].Title
	}
	return fmt.Sprint(out)
}

func TestSeedAndSearch(t *testing.T) {
	store := newTestStore(t, true)
	ctx := context.Background()

	if err := store.SeedIfEmpty(ctx); err != nil {
		t.Fatalf("second SeedIfEmpty: %v", err)
	}

	tests := []struct {
		search string
		want   string
	}{
		{"", "[Grocery List Brainstorming Ideas Meeting Notes]"},
		{"meeting", "[Meeting Notes]"},
		{"SHOPPING", "[Grocery List]"},
		{"%", "[]"},
		{"mockups", "[Brainstorming Ideas]"},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			notes, err := store.List(ctx, note.Query{Search: tt.search})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if got := titles(notes); got != tt.want {
				t.Errorf("titles = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCRUD(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	created, err := store.Create(ctx, note.Input{Title: "Standup", Content: "Ship it", Tags: []string{"work", "work"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if fmt.Sprint(created.Tags) != "[work]" {
		t.Errorf("tags = %v", created.Tags)
	}

	time.Sleep(5 * time.Millisecond)
	updated, err := store.Update(ctx, created.ID, note.Input{Title: "Standup", Content: "Shipped", Tags: []string{"done"}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) || !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("timestamps: created %v/%v updated %v/%v",
			created.CreatedAt, created.UpdatedAt, updated.CreatedAt, updated.UpdatedAt)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != "Shipped" || fmt.Sprint(got.Tags) != "[done]" {
		t.Errorf("got = %+v", got)
	}

	ok, err := store.Delete(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if ok, _ := store.Delete(ctx, created.ID); ok {
		t.Error("second delete reported true")
	}
	if _, err := store.Get(ctx, created.ID); !errors.HasCode(err, errors.ErrCodeNoteNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if _, err := store.Update(ctx, "missing", note.Input{Title: "x"}); !errors.HasCode(err, errors.ErrCodeNoteNotFound) {
		t.Errorf("Update missing = %v", err)
	}
}

func TestServiceOverStore(t *testing.T) {
	store := newTestStore(t, true)
	svc := note.NewService(store)
	n, err := svc.Create(context.Background(), note.Input{Title: "Via service", Content: "hello"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	notes, _ := svc.List(context.Background(), note.Query{})
	if len(notes) != 4 || notes[0].ID != n.ID {
		t.Errorf("newest note not first: %s", titles(notes))
	}
}

func TestMigrationVersion(t *testing.T) {
	ctx := context.Background()
	comp := database.NewComponent(database.Config{Enabled: true, DSN: "file::memory:", LogLevel: "silent"}, logger.Nop()).
		WithMigrations(Migrations)
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer comp.Stop(ctx) //nolint:errcheck

	version, dirty, err := migration.Version(comp.DB().WithContext(ctx), Migrations)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d dirty = %v", version, dirty)
	}
}
