package sqlstore

import "time"

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds SQL connection settings
type Config struct {
	// Driver is either "postgres" or "sqlite"
	Driver string

	// DSN is a postgres connection URL or a sqlite file path
	DSN string

	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns defaults for a local sqlite ledger
func DefaultConfig() Config {
	return Config{
		Driver:          DriverSQLite,
		DSN:             "partycasino.db",
		MaxOpenConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
	}
}
