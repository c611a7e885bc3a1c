package scheddb

import (
	"fmt"
	"log/slog"

	"headway.opentransitsoftware.org/internal/logging"
)

// TableCounts returns the row count of every known schedule table, for
// post-import verification against the in-memory schedule.
func (c *Client) TableCounts() (map[string]int, error) {
	rows, err := c.DB.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, fmt.Errorf("failed to query table names: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows,
		slog.Default().With(slog.String("component", "debugging")),
		"database_rows")

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tableCountQueries := map[string]string{
		"vehicles":          "SELECT COUNT(*) FROM vehicles",
		"trips":             "SELECT COUNT(*) FROM trips",
		"service_periods":   "SELECT COUNT(*) FROM service_periods",
		"stop_times":        "SELECT COUNT(*) FROM stop_times",
		"assembly_metadata": "SELECT COUNT(*) FROM assembly_metadata",
	}

	counts := make(map[string]int)
	for _, table := range tables {
		query, ok := tableCountQueries[table]
		if !ok {
			continue
		}

		var count int
		if err := c.DB.QueryRow(query).Scan(&count); err != nil {
			return nil, err
		}
		counts[table] = count
	}
	return counts, nil
}
