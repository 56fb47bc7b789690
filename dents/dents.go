// Author:  Niels A.D.
// Project: lsdents (https://github.com/nielsAD/lsdents)
// License: Mozilla Public License, v2.0

// Package dents lists the entries of a single directory by parsing the raw
// records returned by the getdents64 syscall.
package dents

import (
	"context"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Errors
var (
	ErrNotADirectory   = errors.New("not a directory")
	ErrOpenFailed      = errors.New("failed to open directory")
	ErrReadFailed      = errors.New("failed to read directory entries")
	ErrMalformedRecord = errors.New("malformed directory record")
	ErrNameTooLong     = errors.New("name does not fit a directory record")
)

// Error describes a failed listing. Kind is one of ErrNotADirectory,
// ErrOpenFailed or ErrReadFailed; Err is the underlying cause.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	s := "dents: "
	if e.Path != "" {
		s += e.Path + ": "
	}
	s += e.Kind.Error()
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns both the kind and the cause, so errors.Is matches either.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// DirectoryReader is an open directory handle that fills a buffer with raw
// records in the linux_dirent64 layout.
type DirectoryReader interface {
	// Fill copies as many records as fit into buf and returns the number of
	// bytes written. Zero means no entries remain.
	Fill(buf []byte) (int, error)

	// Close releases the handle.
	Close() error
}

// DefaultBufferSize specifies the size of the fill buffer allocated when
// Options does not provide one.
const DefaultBufferSize = 5 * 1024 * 1024

// Options provide parameters for how List and ReadNames operate.
type Options struct {
	// BufferSize is the capacity of the reusable fill buffer in bytes.
	BufferSize int

	// FillRate limits the number of fills per second. Zero disables it.
	FillRate int64

	// Log receives debug traces. Nil discards them.
	Log logrus.FieldLogger
}

func (o *Options) withDefaults() Options {
	var res Options
	if o != nil {
		res = *o
	}
	if res.BufferSize <= 0 {
		res.BufferSize = DefaultBufferSize
	}
	if res.Log == nil {
		l := logrus.New()
		l.Out = io.Discard
		res.Log = l
	}
	return res
}

// openDir opens a directory that already passed the stat check.
var openDir = openPlatformDir

// Open returns a handle for the directory at path. The path must name an
// existing directory; the open itself is also restricted to directories.
func Open(path string) (DirectoryReader, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, &Error{Kind: ErrNotADirectory, Path: path, Err: err}
	}
	if !fi.IsDir() {
		return nil, &Error{Kind: ErrNotADirectory, Path: path}
	}

	dir, err := openDir(path)
	if err != nil {
		return nil, &Error{Kind: ErrOpenFailed, Path: path, Err: err}
	}
	return dir, nil
}

// List returns the names of all entries in the directory at path, excluding
// "." and "..", in the order the kernel reports them.
func List(path string, options *Options) ([]string, error) {
	dir, err := Open(path)
	if err != nil {
		return nil, err
	}

	names, err := readNames(path, dir, options)
	if err != nil {
		dir.Close()
		return nil, err
	}
	if err := dir.Close(); err != nil {
		return nil, &Error{Kind: ErrReadFailed, Path: path, Err: err}
	}
	return names, nil
}

// ReadNames fills a buffer from dir until it reports no more entries and
// returns the accumulated names. Any failure discards the names read so far.
// The caller keeps ownership of dir.
func ReadNames(dir DirectoryReader, options *Options) ([]string, error) {
	return readNames("", dir, options)
}

func readNames(path string, dir DirectoryReader, options *Options) ([]string, error) {
	opts := options.withDefaults()
	log := opts.Log

	th := newThrottle(opts.FillRate)
	buf := make([]byte, opts.BufferSize)

	res := make([]string, 0)
	for fill := 1; ; fill++ {
		if err := th.wait(context.Background()); err != nil {
			return nil, &Error{Kind: ErrReadFailed, Path: path, Err: errors.Wrap(err, "throttle")}
		}

		n, err := dir.Fill(buf)
		if err != nil {
			return nil, &Error{Kind: ErrReadFailed, Path: path, Err: err}
		}
		if n <= 0 {
			log.Debugf("fill %d: end of directory, %d names", fill, len(res))
			break
		}
		if n > len(buf) {
			err := errors.Wrapf(ErrMalformedRecord, "fill reported %d bytes for a %d byte buffer", n, len(buf))
			return nil, &Error{Kind: ErrReadFailed, Path: path, Err: err}
		}

		before := len(res)
		err = Parse(buf[:n], func(off int, r Record) {
			if r.Deleted() || r.Pseudo() {
				return
			}
			if r.Garbled {
				log.WithField("offset", off).Debugf("fill %d: name is not valid UTF-8", fill)
			}
			res = append(res, r.Name)
		})
		if err != nil {
			return nil, &Error{Kind: ErrReadFailed, Path: path, Err: err}
		}

		log.Debugf("fill %d: %s, %d names", fill, humanize.IBytes(uint64(n)), len(res)-before)
	}

	return res, nil
}
