package sessionstore

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// filePrefix is the name prefix gorilla's FilesystemStore gives session files.
const filePrefix = "session_"

// Sweep deletes session files in dir last written more than maxAge before
// now and returns how many it removed. Other files are left alone.
func Sweep(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Deleted since ReadDir.
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		err = os.Remove(filepath.Join(dir, e.Name()))
		switch {
		case err == nil:
			removed++
		case !errors.Is(err, os.ErrNotExist):
			log.Printf("Failed to remove session file %s: %v", e.Name(), err)
		}
	}
	return removed, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func RunSweeper(ctx context.Context, dir string, maxAge, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := Sweep(dir, maxAge, now)
			if err != nil {
				log.Printf("Session sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Removed %d expired session files", n)
			}
		}
	}
}
