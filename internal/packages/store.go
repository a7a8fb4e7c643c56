// Package packages implements the Package Store (spec §4.2's upload/extract
// flow): zip archive storage and the extraction tree that launch_game_server
// and the lobby's built-in room server read from.
package packages

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Store manages the on-disk layout <storageRoot>/<game_name>/{file,extracted/}.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore roots a Package Store at root (spec §6's storage directory).
func NewStore(root string, logger *slog.Logger) *Store {
	return &Store{root: root, logger: logger}
}

// GameDir returns and creates <root>/<gameName>.
func (s *Store) GameDir(gameName string) (string, error) {
	dir := filepath.Join(s.root, gameName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("packages: create game dir: %w", err)
	}
	return dir, nil
}

// ArchivePath returns <root>/<gameName>/<filename>, the archive destination
// for an upload_game_file call.
func (s *Store) ArchivePath(gameName, filename string) (string, error) {
	dir, err := s.GameDir(gameName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

// ExtractedDir returns <root>/<gameName>/extracted.
func (s *Store) ExtractedDir(gameName string) string {
	return filepath.Join(s.root, gameName, "extracted")
}

// StoreArchive writes payload to the game's archive path, overwriting any
// prior upload (spec §3: "subsequent uploads by the same author update in
// place").
func (s *Store) StoreArchive(gameName, filename string, payload []byte) (string, error) {
	path, err := s.ArchivePath(gameName, filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("packages: write archive: %w", err)
	}
	return path, nil
}

// Extract unzips archivePath into a freshly-cleared extracted/ directory
// under the game's storage dir and returns that directory.
func (s *Store) Extract(gameName, archivePath string) (string, error) {
	extractDir := s.ExtractedDir(gameName)
	if err := os.RemoveAll(extractDir); err != nil {
		return "", fmt.Errorf("packages: clear extracted dir: %w", err)
	}
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", fmt.Errorf("packages: create extracted dir: %w", err)
	}
	if err := unzip(archivePath, extractDir); err != nil {
		return "", fmt.Errorf("packages: unzip: %w", err)
	}
	return extractDir, nil
}

// unzip extracts every entry of archivePath into destDir, rejecting paths
// that would escape destDir via "..".
func unzip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)
		if !isWithin(destDir, target) {
			return fmt.Errorf("zip entry %q escapes extraction root", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractOne(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractOne(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode().Perm()|0o600)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return nil
}

func isWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !hasParentPrefix(rel)
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// gameConfig mirrors the optional game_config.json a package may ship at its
// extraction root.
type gameConfig struct {
	Description string `json:"description"`
}

// ReadDescription reads "description" from extractedDir/game_config.json, if
// present (spec §9's heterogeneous-field pattern: absent file or absent key
// both yield "", not an error).
func (s *Store) ReadDescription(extractedDir string) string {
	cfgPath := filepath.Join(extractedDir, "game_config.json")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return ""
	}
	var cfg gameConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.logger.Warn("malformed game_config.json", "path", cfgPath, "error", err)
		return ""
	}
	return cfg.Description
}
