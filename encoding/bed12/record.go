package bed12

import (
	"bytes"
	"strconv"

	"github.com/grailbio/umicount/interval"
)

// NumFields is the number of tab-separated columns in a BED12 line.
const NumFields = 12

// DefaultColor is the itemRgb value written on consolidated records.
const DefaultColor = "255,0,0"

// Strand is the orientation of a record, '+' or '-'.
type Strand byte

const (
	// Plus is the forward strand.
	Plus Strand = '+'
	// Minus is the reverse strand.
	Minus Strand = '-'
)

func (s Strand) String() string {
	return string(s)
}

// ParseStrand parses "+" or "-".
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "+":
		return Plus, nil
	case "-":
		return Minus, nil
	}
	return 0, formatErrorf("invalid strand %q", s)
}

// Record is one BED12 line.  BlockSizes and BlockStarts have equal length;
// BlockStarts are relative to Start.
type Record struct {
	Chrom       string
	Start       interval.PosType
	End         interval.PosType
	Name        string
	Score       int
	Strand      Strand
	ThickStart  interval.PosType
	ThickEnd    interval.PosType
	Color       string
	BlockSizes  []interval.PosType
	BlockStarts []interval.PosType
}

// TSS returns the transcription start site of r: Start on the plus strand,
// End on the minus strand.
func (r *Record) TSS() interval.PosType {
	if r.Strand == Plus {
		return r.Start
	}
	return r.End
}

// TSSBase returns the 0-based position of the first transcribed base, i.e.
// TSS() on the plus strand and End-1 on the minus strand.
func (r *Record) TSSBase() interval.PosType {
	if r.Strand == Plus {
		return r.Start
	}
	return r.End - 1
}

// Span returns [Start, End).
func (r *Record) Span() interval.Interval {
	return interval.Interval{Start: r.Start, End: r.End}
}

func (r *Record) String() string {
	return string(bytes.TrimSuffix(Marshal(r), []byte{'\n'}))
}

func parsePos(field []byte, what string) (interval.PosType, error) {
	v, err := strconv.ParseInt(string(field), 10, 32)
	if err != nil {
		return 0, formatErrorf("non-integer %s %q", what, field)
	}
	return interval.PosType(v), nil
}

// parsePosList parses a comma-separated list of integers.  Empty elements,
// such as the one produced by a trailing comma, are skipped.
func parsePosList(field []byte, what string) ([]interval.PosType, error) {
	var list []interval.PosType
	for _, elem := range bytes.Split(field, []byte{','}) {
		if len(elem) == 0 {
			continue
		}
		v, err := parsePos(elem, what)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}

// ParseLine parses one tab-separated BED12 line, without the trailing
// newline.  Errors are of type *FormatError, with Path and Line unset.
func ParseLine(line []byte) (rec Record, err error) {
	fields := bytes.Split(bytes.TrimRight(line, "\r"), []byte{'\t'})
	if len(fields) != NumFields {
		return rec, formatErrorf("expected %d fields, found %d", NumFields, len(fields))
	}
	rec.Chrom = string(fields[0])
	if rec.Chrom == "" {
		return rec, formatErrorf("empty chromosome name")
	}
	if rec.Start, err = parsePos(fields[1], "start"); err != nil {
		return
	}
	if rec.End, err = parsePos(fields[2], "end"); err != nil {
		return
	}
	if rec.Start < 0 || rec.End < rec.Start {
		return rec, formatErrorf("invalid span [%d, %d)", rec.Start, rec.End)
	}
	rec.Name = string(fields[3])
	if rec.Score, err = strconv.Atoi(string(fields[4])); err != nil {
		return rec, formatErrorf("non-integer score %q", fields[4])
	}
	if rec.Strand, err = ParseStrand(string(fields[5])); err != nil {
		return
	}
	if rec.ThickStart, err = parsePos(fields[6], "thickStart"); err != nil {
		return
	}
	if rec.ThickEnd, err = parsePos(fields[7], "thickEnd"); err != nil {
		return
	}
	rec.Color = string(fields[8])
	if _, err = parsePos(fields[9], "blockCount"); err != nil {
		return
	}
	if rec.BlockSizes, err = parsePosList(fields[10], "block size"); err != nil {
		return
	}
	if rec.BlockStarts, err = parsePosList(fields[11], "block start"); err != nil {
		return
	}
	if len(rec.BlockSizes) != len(rec.BlockStarts) {
		return rec, formatErrorf("%d block sizes but %d block starts", len(rec.BlockSizes), len(rec.BlockStarts))
	}
	return rec, nil
}
