package db

import (
	"context"
	"time"
)

// PruneRateLimit deletes entries created before cutoff.
func (db *DB) PruneRateLimit(ctx context.Context, cutoff time.Time) error {
	_, err := db.exec(ctx, "DELETE FROM rate_limit WHERE created_at < ?", cutoff.UTC())
	return err
}

func (db *DB) CountRateLimit(ctx context.Context, ip string, since time.Time) (int, error) {
	var n int
	err := db.get(ctx, &n, "SELECT COUNT(*) FROM rate_limit WHERE ip_address = ? AND created_at > ?", ip, since.UTC())
	if err != nil {
		return 0, err
	}
	return n, nil
}

// OldestRateLimit returns the creation time of the oldest live entry for ip.
func (db *DB) OldestRateLimit(ctx context.Context, ip string, since time.Time) (time.Time, error) {
	var oldest time.Time
	err := db.get(ctx, &oldest,
		"SELECT created_at FROM rate_limit WHERE ip_address = ? AND created_at > ? ORDER BY created_at ASC LIMIT 1",
		ip, since.UTC())
	return oldest, err
}

func (db *DB) InsertRateLimit(ctx context.Context, ip string, at time.Time) error {
	_, err := db.exec(ctx, "INSERT INTO rate_limit (ip_address, created_at) VALUES (?, ?)", ip, at.UTC())
	return err
}
