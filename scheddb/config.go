package scheddb

import "headway.opentransitsoftware.org/internal/appconf"

const defaultBatchSize = 3000

// Config controls database creation and bulk-insert behavior.
type Config struct {
	DBPath    string
	Env       appconf.Environment
	BatchSize int
}

// NewConfig creates a Config with default batch sizing.
func NewConfig(dbPath string, env appconf.Environment) Config {
	return Config{DBPath: dbPath, Env: env}
}

func (c Config) GetBulkInsertBatchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return defaultBatchSize
}
