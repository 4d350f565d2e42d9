package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultMaxSize is the default size of a daily journal file (64 MiB).
	DefaultMaxSize = 64 * 1024 * 1024

	// headerSize is the byte length of the file header. The header holds
	// the bitwise NOT of the payload length as a little-endian int32.
	headerSize = 4

	fileName = "journal.dat"
)

// Errors
var (
	ErrNoSpace = errors.New("journal: no space left in daily file")
	ErrClosed  = errors.New("journal: closed")
	ErrShort   = errors.New("journal: read past end of data")
)

// Journal manages daily-rolling fixed-size binary journal files under a
// base directory. Files live at <base>/<YYYYMMDD>/journal.dat and are
// preallocated to maxSize with a zero fill.
type Journal struct {
	basePath string
	maxSize  int

	// now is replaceable in tests to exercise date rollover.
	now func() time.Time
}

// New creates a Journal rooted at basePath, creating the directory if
// needed. maxSize <= 0 selects DefaultMaxSize.
func New(basePath string, maxSize int) (*Journal, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if maxSize <= headerSize {
		return nil, fmt.Errorf("journal: max size %d too small", maxSize)
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("journal: create base path: %w", err)
	}
	return &Journal{
		basePath: basePath,
		maxSize:  maxSize,
		now:      time.Now,
	}, nil
}

// MaxSize returns the configured daily file size.
func (j *Journal) MaxSize() int {
	return j.maxSize
}

// BasePath returns the journal root directory.
func (j *Journal) BasePath() string {
	return j.basePath
}

// Path returns the journal file path for the given UTC date.
func (j *Journal) Path(date time.Time) string {
	d := date.UTC()
	dir := fmt.Sprintf("%04d%02d%02d", d.Year(), d.Month(), d.Day())
	return filepath.Join(j.basePath, dir, fileName)
}

// utcDate truncates t to its UTC calendar date.
func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
