// Author:  Niels A.D.
// Project: lsdents (https://github.com/nielsAD/lsdents)
// License: Mozilla Public License, v2.0

package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/nielsAD/lsdents/dents"
)

// Exit codes
const (
	exitSuccess = 0
	exitError   = 1
)

// plainFormatter prints the message followed by any fields, without level or
// timestamp.
type plainFormatter struct{}

func (plainFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, e.Data[k])
	}

	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.Out = w
	log.Formatter = plainFormatter{}
	log.Level = logrus.ErrorLevel
	if verbose {
		log.Level = logrus.DebugLevel
	}
	return log
}

func describe(path string, err error) string {
	switch {
	case errors.Is(err, dents.ErrNotADirectory):
		return fmt.Sprintf("%q is not a directory", path)
	case errors.Is(err, dents.ErrOpenFailed):
		return fmt.Sprintf("Failed to open directory: %q", path)
	default:
		return "Error reading directory entries"
	}
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("lsdents", flag.ContinueOnError)
	fs.SetOutput(stderr)

	bufSize := fs.StringP("buf-size", "b", strconv.Itoa(dents.DefaultBufferSize), "Buffer size for reading directory entries (bytes, or a size such as 64KiB)")
	rate := fs.Int64P("rate", "r", 0, "Maximum directory reads per second (0 for unlimited)")
	verbose := fs.BoolP("verbose", "v", false, "Trace every buffer fill on stderr")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: lsdents [flags] <path>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitSuccess
		}
		fmt.Fprintln(stderr, err)
		fs.Usage()
		return exitError
	}

	log := newLogger(stderr, *verbose)
	if fs.NArg() != 1 {
		log.Error("Expected exactly one directory path")
		fs.Usage()
		return exitError
	}

	size, err := humanize.ParseBytes(*bufSize)
	if err != nil || size == 0 || size > math.MaxInt32 {
		log.Errorf("Invalid buffer size %q", *bufSize)
		return exitError
	}
	if *rate < 0 {
		log.Errorf("Invalid rate %d", *rate)
		return exitError
	}

	path := fs.Arg(0)
	log.Debugf("Listing %q with a %s buffer", path, humanize.IBytes(size))

	names, err := dents.List(path, &dents.Options{
		BufferSize: int(size),
		FillRate:   *rate,
		Log:        log,
	})
	if err != nil {
		log.Error(describe(path, err))
		log.Debug(err)
		return exitError
	}

	if len(names) > 0 {
		fmt.Fprintln(stdout, strings.Join(names, "\n"))
	}
	return exitSuccess
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
