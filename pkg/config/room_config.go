package config

// RoomConfig is a Room Server process's configuration (spec §4.4). A room
// server is spawned per room with --host/--port/--room-id/--max-players set
// by the lobby; everything else comes from this file.
type RoomConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	RoomID     string `yaml:"room_id"`
	MaxPlayers int    `yaml:"max_players"`
	Kind       string `yaml:"kind"` // grid, runner

	TickRateHz int `yaml:"tick_rate_hz"` // runner kind only

	Logging LoggingConfig `yaml:"logging"`
}

// DefaultRoomConfig returns a config that can run with no file at all.
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		Host:       "0.0.0.0",
		Kind:       "grid",
		MaxPlayers: 2,
		TickRateHz: 30,
		Logging:    LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
}
