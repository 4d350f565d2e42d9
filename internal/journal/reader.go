package journal

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"
)

// Reader reads binary records sequentially from one daily journal file.
type Reader struct {
	page   []byte
	length int
	offset int
}

// OpenReader opens the journal file for the given UTC date. A file that
// was never synced (zero header) reads as empty.
func (j *Journal) OpenReader(date time.Time) (*Reader, error) {
	path := j.Path(date)
	page, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("journal: open reader: %w", err)
	}
	if len(page) < headerSize {
		return nil, fmt.Errorf("journal: %s truncated below header", path)
	}

	length := decodeLength(page)
	if length < 0 || headerSize+length > len(page) {
		length = 0
	}

	return &Reader{page: page, length: length, offset: headerSize}, nil
}

// Len returns the payload length recorded in the header.
func (r *Reader) Len() int {
	return r.length
}

// Offset returns the current read offset within the file.
func (r *Reader) Offset() int {
	return r.offset
}

// Remaining returns the number of unread payload bytes.
func (r *Reader) Remaining() int {
	return headerSize + r.length - r.offset
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.check(1); err != nil {
		return 0, err
	}
	v := r.page[r.offset]
	r.offset++
	return v, nil
}

// ReadBool reads one byte as a boolean.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

// ReadInt16 reads a little-endian int16.
func (r *Reader) ReadInt16() (int16, error) {
	if err := r.check(2); err != nil {
		return 0, err
	}
	v := int16(binary.LittleEndian.Uint16(r.page[r.offset:]))
	r.offset += 2
	return v, nil
}

// ReadInt32 reads a little-endian int32.
func (r *Reader) ReadInt32() (int32, error) {
	if err := r.check(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(r.page[r.offset:]))
	r.offset += 4
	return v, nil
}

// ReadInt64 reads a little-endian int64.
func (r *Reader) ReadInt64() (int64, error) {
	if err := r.check(8); err != nil {
		return 0, err
	}
	v := int64(binary.LittleEndian.Uint64(r.page[r.offset:]))
	r.offset += 8
	return v, nil
}

// ReadFloat32 reads a little-endian IEEE 754 float32.
func (r *Reader) ReadFloat32() (float32, error) {
	if err := r.check(4); err != nil {
		return 0, err
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.page[r.offset:]))
	r.offset += 4
	return v, nil
}

// ReadFloat64 reads a little-endian IEEE 754 float64.
func (r *Reader) ReadFloat64() (float64, error) {
	if err := r.check(8); err != nil {
		return 0, err
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.page[r.offset:]))
	r.offset += 8
	return v, nil
}

// ReadString reads a stop-bit length prefix followed by the raw bytes.
func (r *Reader) ReadString() (string, error) {
	n, err := r.readStopBit()
	if err != nil {
		return "", err
	}
	if err := r.check(n); err != nil {
		return "", err
	}
	s := string(r.page[r.offset : r.offset+n])
	r.offset += n
	return s, nil
}

// readStopBit decodes a 7-bit-group varint, low group first.
func (r *Reader) readStopBit() (int, error) {
	shift := 0
	value := 0
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
		if shift > 35 {
			return 0, fmt.Errorf("journal: stop-bit value overflows int")
		}
	}
}

func (r *Reader) check(n int) error {
	if r.offset+n > headerSize+r.length {
		return ErrShort
	}
	return nil
}

// decodeLength decodes the bitwise-NOT length header.
func decodeLength(page []byte) int {
	return int(^int32(binary.LittleEndian.Uint32(page[:headerSize])))
}

// encodeLength writes the bitwise-NOT length header.
func encodeLength(page []byte, length int) {
	binary.LittleEndian.PutUint32(page[:headerSize], uint32(^int32(length)))
}
