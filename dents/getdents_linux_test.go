// Author:  Niels A.D.
// Project: lsdents (https://github.com/nielsAD/lsdents)
// License: Mozilla Public License, v2.0

//go:build linux

package dents_test

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nielsAD/lsdents/dents"
)

// counting forwards to a real handle and records the number of fills.
type counting struct {
	dents.DirectoryReader
	fills int
}

func (c *counting) Fill(buf []byte) (int, error) {
	c.fills++
	return c.DirectoryReader.Fill(buf)
}

func TestListBufferSizes(t *testing.T) {
	tmp := t.TempDir()

	var expected []string
	for i := 0; i < 200; i++ {
		name := fmt.Sprintf("file-%03d.txt", i)
		require.NoError(t, os.WriteFile(filepath.Join(tmp, name), nil, 0o644))
		expected = append(expected, name)
	}

	for _, size := range []int{dents.RecordSize("file-000.txt"), 64, 512, 4096, dents.DefaultBufferSize} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			dir, err := dents.Open(tmp)
			require.NoError(t, err)
			defer dir.Close()

			c := &counting{DirectoryReader: dir}
			names, err := dents.ReadNames(c, &dents.Options{BufferSize: size})
			require.NoError(t, err)
			assert.ElementsMatch(t, expected, names)

			if size < 4096 {
				assert.Greater(t, c.fills, 2)
			}
		})
	}
}

func TestListNonUTF8(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "good.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "bad\xff\xfe.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "also-good.txt"), nil, 0o644))

	names, err := dents.List(tmp, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"good.txt", "", "also-good.txt"}, names)
}

func TestBufferTooSmall(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "a.txt"), nil, 0o644))

	names, err := dents.List(tmp, &dents.Options{BufferSize: 8})
	assert.Nil(t, names)
	assert.True(t, errors.Is(err, dents.ErrReadFailed), "%v", err)
	assert.True(t, errors.Is(err, syscall.EINVAL), "%v", err)
}

func TestDirCloseOnce(t *testing.T) {
	dir, err := dents.Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, dir.Close())
	assert.ErrorIs(t, dir.Close(), os.ErrClosed)

	_, err = dir.Fill(make([]byte, 4096))
	assert.ErrorIs(t, err, os.ErrClosed)
}
