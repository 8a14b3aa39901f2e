package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"

	"github.com/TobiSchelling/LiturgyCast/internal/production"
)

// CorruptRecordError reports a stored payload that failed to deserialize.
// Read paths log it and treat the record as absent; the dashboard must never
// crash on a bad cache entry.
type CorruptRecordError struct {
	Table string
	Key   string
	Err   error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt %s record %q: %v", e.Table, e.Key, e.Err)
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }

// PutReadingSet caches a fetched reading set, overwriting any prior entry
// for the same date.
func (db *DB) PutReadingSet(rs *production.ReadingSet) error {
	payload, err := json.Marshal(rs.Readings)
	if err != nil {
		return fmt.Errorf("serializing readings: %w", err)
	}
	_, err = db.conn.Exec(
		`INSERT OR REPLACE INTO reading_cache (date, day_name, liturgical_color, readings, cached_at)
		VALUES (?, ?, ?, ?, datetime('now'))`,
		rs.Date, rs.DayName, rs.Color, string(payload),
	)
	return err
}

// GetReadingSet returns the cached reading set for a date, or nil if absent.
// A corrupt cache entry is logged and reported as absent so the caller
// re-fetches instead of failing.
func (db *DB) GetReadingSet(date string) (*production.ReadingSet, error) {
	row := db.conn.QueryRow(
		"SELECT day_name, liturgical_color, readings FROM reading_cache WHERE date = ?", date,
	)

	rs := &production.ReadingSet{Date: date}
	var payload string
	err := row.Scan(&rs.DayName, &rs.Color, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(payload), &rs.Readings); err != nil {
		log.Printf("%v", &CorruptRecordError{Table: "reading_cache", Key: date, Err: err})
		return nil, nil
	}
	return rs, nil
}

// ReadingHistoryEntry is one row of the dashboard's fetch history.
type ReadingHistoryEntry struct {
	Date     string
	DayName  string
	Color    string
	CachedAt string
}

// ListReadingHistory returns cached reading days, newest first. A color
// filter and a row limit are optional (empty / zero disables them).
func (db *DB) ListReadingHistory(color string, limit int) ([]ReadingHistoryEntry, error) {
	q := sq.Select("date", "day_name", "liturgical_color", "cached_at").
		From("reading_cache").
		OrderBy("date DESC")
	if color != "" {
		q = q.Where(sq.Eq{"liturgical_color": color})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building history query: %w", err)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ReadingHistoryEntry
	for rows.Next() {
		var e ReadingHistoryEntry
		if err := rows.Scan(&e.Date, &e.DayName, &e.Color, &e.CachedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
