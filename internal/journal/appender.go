package journal

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Appender writes length-framed binary records to the journal, rolling to
// a new file when the UTC date changes. Writes go to an in-memory page the
// size of the daily file; Sync and Close write the page through to disk
// and patch the length header.
//
// An Appender is not safe for concurrent use.
type Appender struct {
	journal *Journal

	date   time.Time // UTC date of the open page, zero if none
	file   *os.File
	page   []byte
	pos    int
	closed bool
}

// NewAppender creates an appender positioned at the current UTC date.
// The daily file is opened lazily on first write.
func (j *Journal) NewAppender() *Appender {
	return &Appender{journal: j}
}

// Pos returns the current write offset within the daily file.
func (a *Appender) Pos() int {
	return a.pos
}

// WriteByte appends a single byte.
func (a *Appender) WriteByte(v byte) error {
	if err := a.ensure(1); err != nil {
		return err
	}
	a.page[a.pos] = v
	a.pos++
	return nil
}

// WriteBool appends a boolean as one byte (1 = true).
func (a *Appender) WriteBool(v bool) error {
	var b byte
	if v {
		b = 1
	}
	return a.WriteByte(b)
}

// WriteInt16 appends a little-endian int16.
func (a *Appender) WriteInt16(v int16) error {
	if err := a.ensure(2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(a.page[a.pos:], uint16(v))
	a.pos += 2
	return nil
}

// WriteInt32 appends a little-endian int32.
func (a *Appender) WriteInt32(v int32) error {
	if err := a.ensure(4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(a.page[a.pos:], uint32(v))
	a.pos += 4
	return nil
}

// WriteInt64 appends a little-endian int64.
func (a *Appender) WriteInt64(v int64) error {
	if err := a.ensure(8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(a.page[a.pos:], uint64(v))
	a.pos += 8
	return nil
}

// WriteFloat32 appends a little-endian IEEE 754 float32.
func (a *Appender) WriteFloat32(v float32) error {
	if err := a.ensure(4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(a.page[a.pos:], math.Float32bits(v))
	a.pos += 4
	return nil
}

// WriteFloat64 appends a little-endian IEEE 754 float64.
func (a *Appender) WriteFloat64(v float64) error {
	if err := a.ensure(8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(a.page[a.pos:], math.Float64bits(v))
	a.pos += 8
	return nil
}

// WriteString appends a stop-bit length prefix followed by the raw bytes.
// Prefix and payload are reserved together, so a string that does not fit
// leaves the position unchanged.
func (a *Appender) WriteString(s string) error {
	if err := a.ensure(stopBitLen(len(s)) + len(s)); err != nil {
		return err
	}
	a.putStopBit(len(s))
	copy(a.page[a.pos:], s)
	a.pos += len(s)
	return nil
}

// stopBitLen returns the encoded size of a stop-bit length.
func stopBitLen(v int) int {
	n := 1
	for v > 127 {
		v >>= 7
		n++
	}
	return n
}

// putStopBit encodes a length in 7-bit groups, low group first, high bit
// set on all but the final group. Space must already be ensured.
func (a *Appender) putStopBit(v int) {
	for v > 127 {
		a.page[a.pos] = byte(0x80 | (v & 0x7f))
		a.pos++
		v >>= 7
	}
	a.page[a.pos] = byte(v)
	a.pos++
}

// Sync writes the page and a consistent length header through to disk
// without closing the daily file.
func (a *Appender) Sync() error {
	if a.closed {
		return ErrClosed
	}
	if a.file == nil {
		return nil
	}
	return a.flush()
}

// Close patches the length header, flushes the page, and releases the
// daily file. The appender can no longer be used afterwards.
func (a *Appender) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	return a.closeFile()
}

// RollIfNeeded closes the current daily file when the UTC date has
// changed, so the next write opens the new date's file. Callers invoke it
// between records; mid-record writes never switch files.
func (a *Appender) RollIfNeeded() error {
	if a.closed {
		return ErrClosed
	}
	if a.file == nil {
		return nil
	}
	if a.date.Equal(utcDate(a.journal.now())) {
		return nil
	}
	return a.closeFile()
}

// ensure opens the daily file if needed and verifies the write fits.
// On failure the position is unchanged.
func (a *Appender) ensure(n int) error {
	if a.closed {
		return ErrClosed
	}

	if a.file == nil {
		if err := a.openFile(utcDate(a.journal.now())); err != nil {
			return err
		}
	}

	if a.pos+n > a.journal.maxSize {
		return ErrNoSpace
	}
	return nil
}

// openFile opens or creates the daily file for date and loads it into the
// page. An existing file with a valid header resumes appending after the
// recorded payload.
func (a *Appender) openFile(date time.Time) error {
	path := a.journal.Path(date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("journal: create date dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("journal: stat %s: %w", path, err)
	}

	page := make([]byte, a.journal.maxSize)
	pos := headerSize

	if info.Size() == 0 {
		// Fresh file: preallocate to full size.
		if err := f.Truncate(int64(a.journal.maxSize)); err != nil {
			f.Close()
			return fmt.Errorf("journal: preallocate %s: %w", path, err)
		}
	} else {
		if _, err := f.ReadAt(page, 0); err != nil {
			f.Close()
			return fmt.Errorf("journal: load %s: %w", path, err)
		}
		if length := decodeLength(page); length > 0 && headerSize+length <= a.journal.maxSize {
			pos = headerSize + length
		}
	}

	a.file = f
	a.page = page
	a.pos = pos
	a.date = date
	return nil
}

// closeFile flushes and releases the current daily file, if any.
func (a *Appender) closeFile() error {
	if a.file == nil {
		return nil
	}
	err := a.flush()
	if cerr := a.file.Close(); err == nil {
		err = cerr
	}
	a.file = nil
	a.page = nil
	a.pos = headerSize
	a.date = time.Time{}
	return err
}

// flush patches the header with the current payload length and writes the
// used portion of the page to disk.
func (a *Appender) flush() error {
	encodeLength(a.page, a.pos-headerSize)
	if _, err := a.file.WriteAt(a.page[:a.pos], 0); err != nil {
		return fmt.Errorf("journal: flush: %w", err)
	}
	return a.file.Sync()
}
