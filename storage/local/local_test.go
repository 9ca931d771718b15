package local

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/voicenotes/storage"
)

func TestUploadDownloadDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	if err := s.Upload(ctx, "notes/1.md", strings.NewReader("# Hello")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	ok, err := s.Exists(ctx, "notes/1.md")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	rc, err := s.Download(ctx, "notes/1.md")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "# Hello" {
		t.Errorf("body = %q", body)
	}

	if err := s.Upload(ctx, "notes/1.md", strings.NewReader("# Replaced")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	files, err := s.List(ctx, "notes/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 1 || files[0].Path != "notes/1.md" || files[0].Size != int64(len("# Replaced")) {
		t.Errorf("files = %+v", files)
	}

	if err := s.Delete(ctx, "notes/1.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "notes/1.md"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if _, err := s.Download(ctx, "notes/1.md"); !stderrors.Is(err, storage.ErrNotFound) {
		t.Errorf("Download missing err = %v", err)
	}
}

func TestPathsStayInsideBase(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s, _ := NewStorage(filepath.Join(base, "root"), "")

	if err := s.Upload(ctx, "../escape.md", strings.NewReader("x")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "escape.md")); !os.IsNotExist(err) {
		t.Error("upload escaped the base directory")
	}
	if _, err := os.Stat(filepath.Join(base, "root", "escape.md")); err != nil {
		t.Errorf("expected file inside base: %v", err)
	}
	if err := s.Upload(ctx, "", strings.NewReader("x")); err == nil {
		t.Error("empty path should fail")
	}
}

func TestURL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, _ := NewStorage(dir, "")
	u, err := s.URL(ctx, "notes/1.md")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "/notes/1.md") {
		t.Errorf("url = %q", u)
	}

	pub, _ := NewStorage(dir, "https://cdn.example.com/exports/")
	u, _ = pub.URL(ctx, "notes/1.md")
	if u != "https://cdn.example.com/exports/notes/1.md" {
		t.Errorf("public url = %q", u)
	}
}
