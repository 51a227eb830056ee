// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package analytics persists time-bucketed digest summaries to SQLite for
// historical queries the live Prometheus gauges don't serve: top-talker
// reports, bandwidth-over-time, and flagged-flow history.
package analytics

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Summary is an aggregated flow observed crossing one switch within one
// time bucket.
type Summary struct {
	BucketTime time.Time `json:"bucket_time"`
	Switch     string    `json:"switch"`
	TunnelID   int       `json:"tunnel_id"`
	SrcIP      string    `json:"src_ip"`
	DstIP      string    `json:"dst_ip"`
	SrcPort    int       `json:"src_port"`
	DstPort    int       `json:"dst_port"`
	Protocol   string    `json:"protocol"`
	Bytes      int64     `json:"bytes"`
	Packets    int64     `json:"packets"`
	Malicious  bool      `json:"malicious"`
}

// Store handles persistence of analytics data to SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the analytics database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS digest_summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bucket_time INTEGER NOT NULL,
		switch TEXT NOT NULL,
		tunnel_id INTEGER NOT NULL,
		src_ip TEXT,
		dst_ip TEXT,
		src_port INTEGER,
		dst_port INTEGER,
		proto TEXT,
		bytes INTEGER DEFAULT 0,
		packets INTEGER DEFAULT 0,
		malicious INTEGER DEFAULT 0,
		UNIQUE(bucket_time, switch, tunnel_id, src_ip, dst_ip, src_port, dst_port, proto)
	);
	CREATE INDEX IF NOT EXISTS idx_digest_summaries_time ON digest_summaries(bucket_time);
	CREATE INDEX IF NOT EXISTS idx_digest_summaries_tunnel ON digest_summaries(switch, tunnel_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordSummaries persists a batch of flow summaries using UPSERT.
func (s *Store) RecordSummaries(summaries []Summary) error {
	if len(summaries) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO digest_summaries (bucket_time, switch, tunnel_id, src_ip, dst_ip, src_port, dst_port, proto, bytes, packets, malicious)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bucket_time, switch, tunnel_id, src_ip, dst_ip, src_port, dst_port, proto) DO UPDATE SET
			bytes = bytes + excluded.bytes,
			packets = packets + excluded.packets,
			malicious = CASE WHEN excluded.malicious = 1 THEN 1 ELSE malicious END
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, sum := range summaries {
		malicious := 0
		if sum.Malicious {
			malicious = 1
		}
		_, err := stmt.Exec(
			sum.BucketTime.Unix(),
			sum.Switch,
			sum.TunnelID,
			sum.SrcIP,
			sum.DstIP,
			sum.SrcPort,
			sum.DstPort,
			sum.Protocol,
			sum.Bytes,
			sum.Packets,
			malicious,
		)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// GetBandwidthUsage returns aggregated bytes per time bucket in a range,
// optionally scoped to one switch.
func (s *Store) GetBandwidthUsage(switchName string, from, to time.Time) ([]struct {
	Time  time.Time `json:"time"`
	Bytes int64     `json:"bytes"`
}, error) {
	query := `
		SELECT bucket_time, SUM(bytes)
		FROM digest_summaries
		WHERE bucket_time >= ? AND bucket_time <= ?
	`
	args := []interface{}{from.Unix(), to.Unix()}

	if switchName != "" {
		query += " AND switch = ?"
		args = append(args, switchName)
	}

	query += " GROUP BY bucket_time ORDER BY bucket_time ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []struct {
		Time  time.Time `json:"time"`
		Bytes int64     `json:"bytes"`
	}
	for rows.Next() {
		var ts int64
		var b int64
		if err := rows.Scan(&ts, &b); err != nil {
			return nil, err
		}
		result = append(result, struct {
			Time  time.Time `json:"time"`
			Bytes int64     `json:"bytes"`
		}{time.Unix(ts, 0), b})
	}
	return result, nil
}

// GetTopTalkers returns the top N (switch, tunnel) pairs by byte count in a
// time range.
func (s *Store) GetTopTalkers(from, to time.Time, limit int) ([]Summary, error) {
	query := `
		SELECT switch, tunnel_id, SUM(bytes), SUM(packets)
		FROM digest_summaries
		WHERE bucket_time >= ? AND bucket_time <= ?
		GROUP BY switch, tunnel_id
		ORDER BY SUM(bytes) DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, from.Unix(), to.Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.Switch, &sum.TunnelID, &sum.Bytes, &sum.Packets); err != nil {
			return nil, err
		}
		result = append(result, sum)
	}
	return result, nil
}

// GetHistoricalFlows returns detailed flow summaries with filtering.
func (s *Store) GetHistoricalFlows(switchName string, from, to time.Time, limit, offset int) ([]Summary, error) {
	query := `
		SELECT bucket_time, switch, tunnel_id, src_ip, dst_ip, src_port, dst_port, proto, bytes, packets, malicious
		FROM digest_summaries
		WHERE bucket_time >= ? AND bucket_time <= ?
	`
	args := []interface{}{from.Unix(), to.Unix()}
	if switchName != "" {
		query += " AND switch = ?"
		args = append(args, switchName)
	}

	query += " ORDER BY bucket_time DESC, bytes DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Summary
	for rows.Next() {
		var sum Summary
		var ts int64
		var malicious int
		err := rows.Scan(
			&ts, &sum.Switch, &sum.TunnelID, &sum.SrcIP, &sum.DstIP, &sum.SrcPort, &sum.DstPort, &sum.Protocol,
			&sum.Bytes, &sum.Packets, &malicious,
		)
		if err != nil {
			return nil, err
		}
		sum.BucketTime = time.Unix(ts, 0)
		sum.Malicious = malicious == 1
		result = append(result, sum)
	}
	return result, nil
}

// Cleanup removes records older than the retention period.
func (s *Store) Cleanup(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := s.db.Exec("DELETE FROM digest_summaries WHERE bucket_time < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
