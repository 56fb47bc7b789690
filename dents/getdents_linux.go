// Author:  Niels A.D.
// Project: lsdents (https://github.com/nielsAD/lsdents)
// License: Mozilla Public License, v2.0

//go:build linux

package dents

import (
	"os"

	"golang.org/x/sys/unix"
)

// dirFD is a directory opened with O_DIRECTORY and read via getdents64.
type dirFD struct {
	fd int
}

func openPlatformDir(name string) (DirectoryReader, error) {
	fd, err := unix.Open(name, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return &dirFD{fd: fd}, nil
}

func (d *dirFD) Fill(buf []byte) (int, error) {
	if d.fd < 0 {
		return 0, os.ErrClosed
	}
	n, err := unix.Getdents(d.fd, buf)
	if err != nil {
		return 0, os.NewSyscallError("getdents64", err)
	}
	return n, nil
}

func (d *dirFD) Close() error {
	if d.fd < 0 {
		return os.ErrClosed
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
