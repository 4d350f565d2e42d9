package uploader

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PruneJournals removes journal date directories older than the
// retention window. Directories that do not look like YYYYMMDD dates
// are left alone. Returns the number of directories removed.
func (u *Uploader) PruneJournals() (int, error) {
	if u.cfg.RetentionDays <= 0 {
		return 0, nil
	}

	cutoff := u.now().UTC().AddDate(0, 0, -u.cfg.RetentionDays)

	entries, err := os.ReadDir(u.journal.BasePath())
	if err != nil {
		return 0, fmt.Errorf("prune: read journal dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		date, err := time.Parse("20060102", entry.Name())
		if err != nil {
			continue
		}
		if !date.Before(cutoff) {
			continue
		}

		path := filepath.Join(u.journal.BasePath(), entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("prune: remove %s: %w", path, err)
		}
		removed++
		u.logger.Info("pruned journal directory", "date", entry.Name())
	}

	return removed, nil
}
