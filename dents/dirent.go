// Author:  Niels A.D.
// Project: lsdents (https://github.com/nielsAD/lsdents)
// License: Mozilla Public License, v2.0

package dents

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Field offsets of a linux_dirent64 record (see getdents64(2)).
const (
	inoOffset    = 0
	offOffset    = 8
	reclenOffset = 16
	typeOffset   = 18
	nameOffset   = 19

	recordAlign = 8
)

// NameCapacity is the largest name field a record may carry (NAME_MAX + NUL).
const NameCapacity = 256

// MinRecordSize is the size of the smallest well-formed record, holding a
// single-byte name.
const MinRecordSize = 24

// Record stores a single raw directory entry (see Parse)
type Record struct {
	Ino    uint64
	Off    int64
	Reclen uint16
	Type   uint8
	Name   string

	// Garbled is set when the name was not valid UTF-8 and Name was
	// replaced by the empty string.
	Garbled bool
}

// Deleted reports whether r marks an empty or deleted slot.
func (r Record) Deleted() bool {
	return r.Ino == 0
}

// Pseudo reports whether r is the self or parent entry.
func (r Record) Pseudo() bool {
	return r.Name == "." || r.Name == ".."
}

// NameFromField returns the NUL-terminated name stored in field. At most
// NameCapacity bytes are scanned; a missing terminator ends the name at that
// bound. Names that are not valid UTF-8 are returned as "" and false.
func NameFromField(field []byte) (string, bool) {
	if len(field) > NameCapacity {
		field = field[:NameCapacity]
	}
	if index := bytes.IndexByte(field, 0); index >= 0 {
		field = field[:index]
	}
	if !utf8.Valid(field) {
		return "", false
	}
	return string(field), true
}

// ParseRecord decodes the record at the start of buf. buf must end where the
// valid bytes of the current fill end, so a record that claims more bytes than
// are left is rejected instead of read.
func ParseRecord(buf []byte) (Record, error) {
	if len(buf) < nameOffset {
		return Record{}, errors.Wrapf(ErrMalformedRecord, "%d bytes left, header needs %d", len(buf), nameOffset)
	}

	reclen := binary.NativeEndian.Uint16(buf[reclenOffset:])
	switch {
	case reclen == 0:
		return Record{}, errors.Wrap(ErrMalformedRecord, "zero record length")
	case int(reclen) < nameOffset:
		return Record{}, errors.Wrapf(ErrMalformedRecord, "record length %d shorter than header", reclen)
	case int(reclen) > len(buf):
		return Record{}, errors.Wrapf(ErrMalformedRecord, "record length %d exceeds %d remaining bytes", reclen, len(buf))
	}

	rec := buf[:reclen]
	r := Record{
		Ino:    binary.NativeEndian.Uint64(rec[inoOffset:]),
		Off:    int64(binary.NativeEndian.Uint64(rec[offOffset:])),
		Reclen: reclen,
		Type:   rec[typeOffset],
	}
	if r.Deleted() {
		return r, nil
	}

	name, ok := NameFromField(rec[nameOffset:])
	r.Name = name
	r.Garbled = !ok
	return r, nil
}

// Parse decodes every record in buf, which holds exactly the bytes of one
// fill, and calls fn with each record and its offset in order.
func Parse(buf []byte, fn func(off int, r Record)) error {
	for off := 0; off < len(buf); {
		r, err := ParseRecord(buf[off:])
		if err != nil {
			return errors.WithMessagef(err, "offset %d", off)
		}

		fn(off, r)
		off += int(r.Reclen)
	}
	return nil
}

// RecordSize returns the aligned length of a record carrying name.
func RecordSize(name string) int {
	return (nameOffset + len(name) + 1 + recordAlign - 1) &^ (recordAlign - 1)
}

// AppendRecord appends a well-formed record to buf and returns the extended
// buffer. Names that do not fit the name field with their terminator are
// rejected and buf is returned unchanged.
func AppendRecord(buf []byte, ino uint64, off int64, typ uint8, name string) ([]byte, error) {
	if len(name) >= NameCapacity {
		return buf, errors.Wrapf(ErrNameTooLong, "%d bytes", len(name))
	}

	n := RecordSize(name)
	start := len(buf)
	buf = append(buf, make([]byte, n)...)

	rec := buf[start:]
	binary.NativeEndian.PutUint64(rec[inoOffset:], ino)
	binary.NativeEndian.PutUint64(rec[offOffset:], uint64(off))
	binary.NativeEndian.PutUint16(rec[reclenOffset:], uint16(n))
	rec[typeOffset] = typ
	copy(rec[nameOffset:], name)
	return buf, nil
}
