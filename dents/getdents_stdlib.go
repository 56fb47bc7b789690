// Author:  Niels A.D.
// Project: lsdents (https://github.com/nielsAD/lsdents)
// License: Mozilla Public License, v2.0

//go:build !linux

package dents

import (
	"io"
	"os"
	"syscall"
)

const readdirBatch = 256

// emulatedDir produces linux_dirent64 records from os.File.Readdirnames on
// platforms without getdents64.
type emulatedDir struct {
	f       *os.File
	pending []string
	eof     bool
	ino     uint64
}

func openPlatformDir(name string) (DirectoryReader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !fi.IsDir() {
		f.Close()
		return nil, &os.PathError{Op: "open", Path: name, Err: syscall.ENOTDIR}
	}

	return &emulatedDir{f: f}, nil
}

func (d *emulatedDir) Fill(buf []byte) (int, error) {
	if d.f == nil {
		return 0, os.ErrClosed
	}

	out := buf[:0]
	for {
		if len(d.pending) == 0 {
			if d.eof {
				break
			}
			names, err := d.f.Readdirnames(readdirBatch)
			if err == io.EOF {
				d.eof = true
				continue
			}
			if err != nil {
				return 0, err
			}
			d.pending = names
			continue
		}

		name := d.pending[0]
		if len(out)+RecordSize(name) > len(buf) {
			if len(out) == 0 {
				return 0, syscall.EINVAL
			}
			break
		}

		rec, err := AppendRecord(out, d.ino+1, int64(d.ino+1), 0, name)
		if err != nil {
			return 0, err
		}
		d.ino++
		out = rec
		d.pending = d.pending[1:]
	}
	return len(out), nil
}

func (d *emulatedDir) Close() error {
	if d.f == nil {
		return os.ErrClosed
	}
	err := d.f.Close()
	d.f = nil
	return err
}
