package dbclient

import (
	"fmt"

	"linkbio/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

// buildMySQLDSN constructs a MySQL DSN from the store config.
func buildMySQLDSN(cfg config.StoreConfig, password string) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.Username, password, cfg.Host, port, cfg.Database,
	)
	if cfg.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}
