package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"

	"github.com/TobiSchelling/LiturgyCast/internal/production"
)

// progressRecord is the serialized shape of the progress column: stage flags
// plus per-stage artifacts in one JSON document.
type progressRecord struct {
	Flags     production.StageFlags `json:"flags"`
	Artifacts production.Artifacts  `json:"artifacts"`
}

// PutStatus upserts a production status record. last_touched is refreshed on
// every write; completed_stages is denormalized for the dashboard query.
func (db *DB) PutStatus(st *production.ProductionStatus) error {
	payload, err := json.Marshal(progressRecord{Flags: st.Flags, Artifacts: st.Artifacts})
	if err != nil {
		return fmt.Errorf("serializing progress: %w", err)
	}

	active := 0
	if st.Active {
		active = 1
	}

	_, err = db.conn.Exec(
		`INSERT OR REPLACE INTO production_status
		(production_key, date, kind, progress, active, completed_stages, last_touched)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))`,
		st.Key, st.Date, st.Kind, string(payload), active, st.Flags.CompletedCount(),
	)
	return err
}

// GetStatus returns the production status for a key, or nil if absent.
// A record whose progress payload fails to deserialize is logged and
// reported as absent.
func (db *DB) GetStatus(key string) (*production.ProductionStatus, error) {
	row := db.conn.QueryRow(
		`SELECT production_key, date, kind, progress, active, last_touched
		FROM production_status WHERE production_key = ?`, key,
	)
	st, err := scanStatus(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		if corrupt, ok := err.(*CorruptRecordError); ok {
			log.Printf("%v", corrupt)
			return nil, nil
		}
		return nil, err
	}
	return st, nil
}

// ListActiveOrInProgress returns every production that is open for work or
// has at least one completed stage. Fully-default inactive records are
// excluded; they carry no information the dashboard needs.
func (db *DB) ListActiveOrInProgress() ([]*production.ProductionStatus, error) {
	query, args, err := sq.Select("production_key", "date", "kind", "progress", "active", "last_touched").
		From("production_status").
		Where(sq.Or{
			sq.Eq{"active": 1},
			sq.Gt{"completed_stages": 0},
		}).
		OrderBy("last_touched DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building dashboard query: %w", err)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []*production.ProductionStatus
	for rows.Next() {
		st, err := scanStatus(rows.Scan)
		if err != nil {
			if corrupt, ok := err.(*CorruptRecordError); ok {
				log.Printf("%v", corrupt)
				continue
			}
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

// DeleteStatus removes a production status record entirely.
func (db *DB) DeleteStatus(key string) error {
	_, err := db.conn.Exec("DELETE FROM production_status WHERE production_key = ?", key)
	return err
}

func scanStatus(scan func(...any) error) (*production.ProductionStatus, error) {
	st := &production.ProductionStatus{}
	var payload string
	var active int
	var touched sql.NullString
	if err := scan(&st.Key, &st.Date, &st.Kind, &payload, &active, &touched); err != nil {
		return nil, err
	}
	st.Active = active != 0
	st.LastTouched = touched.String

	var rec progressRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, &CorruptRecordError{Table: "production_status", Key: st.Key, Err: err}
	}
	st.Flags = rec.Flags
	st.Artifacts = rec.Artifacts
	return st, nil
}
