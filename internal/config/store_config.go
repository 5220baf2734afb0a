package config

const (
	StoreDriverMemory = "memory"
	StoreDriverSQLite = "sqlite"

	defaultStorePath = "ziteboard-sessions.db"
)

type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`
}
