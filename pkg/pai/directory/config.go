package directory

// Config selects and configures the directory backend.
type Config struct {
	// Type is the backend type: "sqlite" (default), "postgres", or "memory".
	Type string `yaml:"type"`

	// Path is the database file path (sqlite).
	Path string `yaml:"path"`

	// DSN is the connection string (postgres).
	DSN string `yaml:"dsn"`

	// MaxOpenConns caps the connection pool (postgres).
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeoutMS is the SQLite busy timeout in milliseconds.
	BusyTimeoutMS int `yaml:"busy_timeout_ms"`
}

// DefaultConfig returns the zero-configuration SQLite setup.
func DefaultConfig() Config {
	return Config{
		Type:          "sqlite",
		Path:          "./data/directory.db",
		MaxOpenConns:  10,
		BusyTimeoutMS: 5000,
	}
}
