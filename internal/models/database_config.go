package models

// StoreType identifies the engine backing DataDeck's own metadata store.
// This is unrelated to EngineKind, which classifies customer probe
// targets.
type StoreType string

const (
	StorePostgreSQL StoreType = "postgresql"
	StoreMySQL      StoreType = "mysql"
	StoreSQLite     StoreType = "sqlite"
)

type DatabaseConfig struct {
	Type     StoreType `yaml:"type" json:"type"`
	DSN      string    `yaml:"dsn,omitempty" json:"dsn,omitzero"`
	Host     string    `yaml:"host,omitempty" json:"host,omitzero"`
	Port     int       `yaml:"port,omitempty" json:"port,omitzero"`
	Username string    `yaml:"username,omitempty" json:"username,omitzero"`
	Password string    `yaml:"password,omitempty" json:"password,omitzero"`
	Database string    `yaml:"database" json:"database"`
	SSLMode  string    `yaml:"ssl_mode,omitempty" json:"ssl_mode,omitzero"`
	FilePath string    `yaml:"file_path,omitempty" json:"file_path,omitzero"`

	MaxOpenConns    int `yaml:"max_open_conns,omitempty" json:"max_open_conns,omitzero"`
	MaxIdleConns    int `yaml:"max_idle_conns,omitempty" json:"max_idle_conns,omitzero"`
	ConnMaxLifetime int `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitzero"`
}
