package lobby

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// packageConfig mirrors the optional game_config.json a package may ship
// (spec §6 "Game package layout").
type packageConfig struct {
	Version         string `json:"version"`
	Description     string `json:"description"`
	EntryRoomServer string `json:"entry_room_server"`
	EntryClient     string `json:"entry_client"`
}

const defaultRoomServerEntry = "run_room_server.py"

// resolveRoomServerEntry resolves the room-server entry point within
// gameDir: prefer game_config.json's entry_room_server, else the default
// filename, else report that no package entry exists (spec §4.3
// "create_room").
func resolveRoomServerEntry(gameDir string) (path string, ok bool) {
	cfgPath := filepath.Join(gameDir, "game_config.json")
	entry := defaultRoomServerEntry
	if data, err := os.ReadFile(cfgPath); err == nil {
		var cfg packageConfig
		if json.Unmarshal(data, &cfg) == nil && cfg.EntryRoomServer != "" {
			entry = cfg.EntryRoomServer
		}
	}
	candidate := filepath.Join(gameDir, entry)
	if _, err := os.Stat(candidate); err != nil {
		return "", false
	}
	return candidate, true
}
