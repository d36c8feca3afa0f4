package transport

import (
	"encoding/binary"
	"errors"
	"math"
)

// reader is a small cursor over a decoded frame payload. It never
// panics on truncation; callers surface a decode error instead (spec.md
// §7: decode errors are fatal to the connection, not the process).
type reader struct {
	buf []byte
	pos int
}

var errTruncated = errors.New("truncated")

func (r *reader) byte() (byte, error) {
	if r.pos+1 > len(r.buf) {
		return 0, errTruncated
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, errTruncated
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.buf) {
		return "", errTruncated
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// bytesOfLen reads a length-prefixed byte slice. A negative n means
// "read the length prefix from the stream" (the Data-message raw
// payload carries its own size, unlike fixed-shape fields above).
func (r *reader) bytesOfLen(n int) ([]byte, error) {
	if n < 0 {
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		n = int(size)
	}
	if r.pos+n > len(r.buf) {
		return nil, errTruncated
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func leFloat64(b []byte) float64 {
	if len(b) < 8 {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func leInt64(b []byte) int64 {
	if len(b) < 8 {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func leBytesFloat64(f float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	return b[:]
}

func leBytesInt64(n int64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(n))
	return b[:]
}

func appendI32(buf []byte, n int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(n))
	return append(buf, b[:]...)
}
