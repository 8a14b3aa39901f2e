package database

import "time"

// Stats contains aggregate database statistics for the status command.
type Stats struct {
	CachedDays        int
	TotalProductions  int
	ActiveProductions int
	Published         int
}

// GetStats returns aggregate counts over both record families.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM reading_cache").Scan(&stats.CachedDays); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM production_status").Scan(&stats.TotalProductions); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM production_status WHERE active = 1").Scan(&stats.ActiveProductions); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM production_status
		WHERE active = 0 AND progress LIKE '%"publish":true%'`,
	).Scan(&stats.Published); err != nil {
		return nil, err
	}

	return stats, nil
}

// GetToday returns today's date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().Format("2006-01-02")
}

// FormatDateDisplay formats an ISO date for human-readable display.
func FormatDateDisplay(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return d.Format("Jan 02, 2006")
}
