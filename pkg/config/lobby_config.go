package config

// LobbyConfig is the Game Lobby Server's configuration (spec §4.1). A lobby
// process is spawned per game with --host/--port/--room-port-start/
// --game-dir/--game-name set by the central server; everything else comes
// from this file.
type LobbyConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	RoomPortStart int    `yaml:"room_port_start"`
	GameDir       string `yaml:"game_dir"`
	GameName      string `yaml:"game_name"`

	Room struct {
		BinaryPath string `yaml:"binary_path"` // fallback room server when the package has none
		Kind       string `yaml:"kind"`        // grid, runner
	} `yaml:"room"`

	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// DefaultLobbyConfig returns a config that can run with no file at all.
func DefaultLobbyConfig() LobbyConfig {
	cfg := LobbyConfig{Host: "0.0.0.0", RoomPortStart: 12000}
	cfg.Room.Kind = "grid"
	cfg.Logging = LoggingConfig{Level: "info", Format: "text", Output: "stdout"}
	cfg.Monitoring = MonitoringConfig{Enabled: true, Port: 9101}
	return cfg
}
