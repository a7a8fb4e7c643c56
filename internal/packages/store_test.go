package packages

import (
	"archive/zip"
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip.Create: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip.Close: %v", err)
	}
	return buf.Bytes()
}

func TestStoreArchiveAndExtract(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root, slog.Default())

	payload := buildZip(t, map[string]string{
		"game_config.json": `{"description":"a fine game"}`,
		"main.py":           "print('hi')",
	})

	archivePath, err := s.StoreArchive("ttt", "ttt-v1.zip", payload)
	if err != nil {
		t.Fatalf("StoreArchive: %v", err)
	}
	if _, err := os.Stat(archivePath); err != nil {
		t.Fatalf("expected archive on disk: %v", err)
	}

	extractedDir, err := s.Extract("ttt", archivePath)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if extractedDir != s.ExtractedDir("ttt") {
		t.Errorf("unexpected extracted dir %q", extractedDir)
	}

	data, err := os.ReadFile(filepath.Join(extractedDir, "main.py"))
	if err != nil {
		t.Fatalf("expected extracted main.py: %v", err)
	}
	if string(data) != "print('hi')" {
		t.Errorf("unexpected extracted content %q", data)
	}

	if desc := s.ReadDescription(extractedDir); desc != "a fine game" {
		t.Errorf("expected description from game_config.json, got %q", desc)
	}
}

func TestStoreExtractRejectsPathTraversal(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root, slog.Default())

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, _ := w.Create("../../evil.txt")
	io.WriteString(f, "pwned")
	w.Close()

	archivePath, err := s.StoreArchive("bad", "bad.zip", buf.Bytes())
	if err != nil {
		t.Fatalf("StoreArchive: %v", err)
	}
	if _, err := s.Extract("bad", archivePath); err == nil {
		t.Fatalf("expected path traversal to be rejected")
	}
}

func TestReadDescriptionMissingFile(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root, slog.Default())
	if desc := s.ReadDescription(root); desc != "" {
		t.Errorf("expected empty description when game_config.json absent, got %q", desc)
	}
}
