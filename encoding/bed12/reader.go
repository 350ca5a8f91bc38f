package bed12

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const maxLineLength = 16 << 20

// Scanner reads BED12 records from a stream.  Blank lines, comments ('#') and
// "track"/"browser" header lines are skipped.
//
//   sc := bed12.NewScanner(r, path)
//   var rec bed12.Record
//   for sc.Scan(&rec) {
//     ...
//   }
//   if err := sc.Err(); err != nil { ... }
type Scanner struct {
	path string
	sc   *bufio.Scanner
	line int
	err  error
}

// NewScanner creates a Scanner reading from r.  path is used only in error
// messages.
func NewScanner(r io.Reader, path string) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLineLength)
	return &Scanner{path: path, sc: sc}
}

func isHeader(line []byte) bool {
	return len(line) == 0 || line[0] == '#' ||
		bytes.HasPrefix(line, []byte("track")) || bytes.HasPrefix(line, []byte("browser"))
}

// Scan reads the next record into rec.  It returns false at the end of the
// stream or on error; Err distinguishes the two.
func (s *Scanner) Scan(rec *Record) bool {
	if s.err != nil {
		return false
	}
	for s.sc.Scan() {
		s.line++
		line := bytes.TrimRight(s.sc.Bytes(), "\r")
		if isHeader(line) {
			continue
		}
		r, err := ParseLine(line)
		if err != nil {
			if fe, ok := err.(*FormatError); ok {
				fe.Path, fe.Line = s.path, s.line
			}
			s.err = err
			return false
		}
		*rec = r
		return true
	}
	if err := s.sc.Err(); err != nil {
		s.err = errors.Wrapf(err, "bed12: read %s", s.path)
	}
	return false
}

// Line returns the 1-based line number of the last record returned by Scan.
func (s *Scanner) Line() int { return s.line }

// Err returns the error that stopped Scan, or nil at a clean end of stream.
func (s *Scanner) Err() error { return s.err }

// Scan opens path, transparently decompressing ".gz" files, and calls fn on
// every record in order.  It stops at the first error returned by fn.
func Scan(ctx context.Context, path string, fn func(rec *Record) error) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "bed12: open %s", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return errors.Wrapf(err, "bed12: %s", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	sc := NewScanner(r, path)
	var rec Record
	for sc.Scan(&rec) {
		if err := fn(&rec); err != nil {
			return err
		}
	}
	return sc.Err()
}
