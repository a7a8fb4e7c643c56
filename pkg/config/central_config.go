package config

// CentralConfig is the Central Directory Server's configuration (spec §4.1).
type CentralConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	Storage StorageConfig `yaml:"storage"`

	Lobby struct {
		BinaryPath string `yaml:"binary_path"`
		BasePort   int    `yaml:"base_port"`
	} `yaml:"lobby"`

	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// DefaultCentralConfig returns a config that can run with no file at all.
func DefaultCentralConfig() CentralConfig {
	cfg := CentralConfig{Host: "0.0.0.0", Port: 12345}
	cfg.Storage.Root = "./data"
	cfg.Storage.Backend = "json"
	cfg.Lobby.BasePort = 11000
	cfg.Logging = LoggingConfig{Level: "info", Format: "text", Output: "stdout"}
	cfg.Monitoring = MonitoringConfig{Enabled: true, Port: 9100}
	return cfg
}
