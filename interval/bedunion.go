package interval

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// NewBEDOpts defines behavior of this package's BED-loading function(s).
type NewBEDOpts struct {
	// Invert causes the complement of the interval-union to be returned.  The
	// complement extends down to position -1 at the beginning of each
	// chromosome, and 2^31 - 1 at the end.  Only chromosomes mentioned in the
	// input are included.
	Invert bool
	// OneBasedInput interprets the BED interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// BEDUnion is a chromosome-keyed set of disjoint intervals.  Each chromosome
// maps to a length-2N sequence where element [2k] is the start of interval #k
// and element [2k+1] is its end, in increasing order.  A position p is covered
// iff the number of endpoints <= p is odd.
type BEDUnion struct {
	nameMap map[string][]PosType

	// Cached lookup state; sequential queries on one chromosome avoid a full
	// binary search.
	lastChrName      string
	lastChrIntervals []PosType
	lastPosPlus1     PosType
	lastIdx          int
	isSequential     bool
}

// searchPosType returns the index of x in a[], or the position where x would
// be inserted if x isn't in a.
func searchPosType(a []PosType, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= x })
}

// fwdsearchPosType checks a[idx], a[idx+1], a[idx+3], a[idx+7], ... and then
// binary-searches the remaining window.
func fwdsearchPosType(a []PosType, x PosType, idx int) int {
	incr := 1
	lo, hi := idx, len(a)
	for idx < hi {
		if a[idx] >= x {
			hi = idx
			break
		}
		lo = idx + 1
		idx += incr
		incr *= 2
	}
	return lo + sort.Search(hi-lo, func(i int) bool { return a[lo+i] >= x })
}

// Contains reports whether the (0-based) position pos on chromosome chrName is
// covered by the union.
func (u *BEDUnion) Contains(chrName string, pos PosType) bool {
	posPlus1 := pos + 1
	if chrName != u.lastChrName || u.lastChrIntervals == nil {
		u.lastChrName = chrName
		u.lastChrIntervals = u.nameMap[chrName]
		if u.lastChrIntervals == nil {
			return false
		}
		u.lastIdx = searchPosType(u.lastChrIntervals, posPlus1)
		u.lastPosPlus1 = posPlus1
		u.isSequential = true
		return u.lastIdx&1 == 1
	}
	if u.isSequential {
		if posPlus1 >= u.lastPosPlus1 {
			u.lastIdx = fwdsearchPosType(u.lastChrIntervals, posPlus1, u.lastIdx)
			u.lastPosPlus1 = posPlus1
			return u.lastIdx&1 == 1
		}
		u.isSequential = false
	}
	return searchPosType(u.lastChrIntervals, posPlus1)&1 == 1
}

// Chromosomes returns the sorted names of the chromosomes in the union.
func (u *BEDUnion) Chromosomes() []string {
	names := make([]string, 0, len(u.nameMap))
	for name := range u.nameMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Intervals returns the disjoint intervals stored for chrName, in increasing
// order.
func (u *BEDUnion) Intervals(chrName string) []Interval {
	endpoints := u.nameMap[chrName]
	ivs := make([]Interval, 0, len(endpoints)/2)
	for i := 0; i+1 < len(endpoints); i += 2 {
		ivs = append(ivs, Interval{Start: endpoints[i], End: endpoints[i+1]})
	}
	return ivs
}

// Clone returns a new BEDUnion which shares the interval set, but has its own
// lookup state.
func (u *BEDUnion) Clone() BEDUnion {
	return BEDUnion{nameMap: u.nameMap}
}

// unionBuilder accumulates intervals sorted by (chromosome, start) into a
// BEDUnion, merging touching and overlapping intervals on the way.
type unionBuilder struct {
	opts     NewBEDOpts
	nameMap  map[string][]PosType
	chr      string
	cur      []PosType
	start    PosType
	end      PosType // -1 iff no pending interval
	totBases int
}

func newUnionBuilder(opts NewBEDOpts) *unionBuilder {
	return &unionBuilder{opts: opts, nameMap: map[string][]PosType{}, end: -1}
}

func (b *unionBuilder) closeChr() {
	if b.chr == "" {
		return
	}
	if b.end != -1 {
		b.cur = append(b.cur, b.start, b.end)
	}
	if b.opts.Invert {
		b.cur = append(b.cur, posTypeMax)
	}
	b.nameMap[b.chr] = b.cur
}

func (b *unionBuilder) add(chr string, start, end PosType) error {
	if start < 0 {
		return fmt.Errorf("negative start coordinate %d", start)
	}
	if end < start || end >= posTypeMax {
		return fmt.Errorf("invalid coordinate pair [%d, %d)", start, end)
	}
	if chr != b.chr {
		b.closeChr()
		if _, found := b.nameMap[chr]; found {
			return fmt.Errorf("unsorted input (split chromosome %v)", chr)
		}
		b.chr = chr
		b.cur = []PosType{}
		if b.opts.Invert {
			b.cur = append(b.cur, -1)
		}
		b.end = -1
	}
	if end == start {
		// An empty interval still marks the chromosome as mentioned.
		return nil
	}
	switch {
	case b.end == -1:
		b.start, b.end = start, end
	case start > b.end:
		b.cur = append(b.cur, b.start, b.end)
		b.start, b.end = start, end
	case start < b.start:
		return fmt.Errorf("unsorted input at %s:%d", chr, start)
	case end > b.end:
		b.totBases += int(end - b.end)
		b.end = end
		return nil
	default:
		return nil
	}
	b.totBases += int(end - start)
	return nil
}

func (b *unionBuilder) finish() BEDUnion {
	b.closeChr()
	return BEDUnion{nameMap: b.nameMap}
}

// NewBEDUnion loads the first three columns of a BED file sorted by
// chromosome and start, merging touching/overlapping intervals and eliminating
// empty ones.  Blank lines and lines starting with '#', "track" or "browser"
// are skipped.
func NewBEDUnion(reader io.Reader, opts NewBEDOpts) (BEDUnion, error) {
	var startSubtract PosType
	if opts.OneBasedInput {
		startSubtract = 1
	}
	b := newUnionBuilder(opts)
	scanner := bufio.NewScanner(reader)
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		tokens := bytes.Fields(scanner.Bytes())
		if len(tokens) == 0 || tokens[0][0] == '#' ||
			bytes.Equal(tokens[0], []byte("track")) || bytes.Equal(tokens[0], []byte("browser")) {
			continue
		}
		if len(tokens) < 3 {
			return BEDUnion{}, fmt.Errorf("interval.NewBEDUnion: line %d has fewer tokens than expected", lineIdx)
		}
		start, err := strconv.ParseInt(string(tokens[1]), 10, 32)
		if err != nil {
			return BEDUnion{}, fmt.Errorf("interval.NewBEDUnion: line %d: %v", lineIdx, err)
		}
		end, err := strconv.ParseInt(string(tokens[2]), 10, 32)
		if err != nil {
			return BEDUnion{}, fmt.Errorf("interval.NewBEDUnion: line %d: %v", lineIdx, err)
		}
		if err := b.add(string(tokens[0]), PosType(start)-startSubtract, PosType(end)); err != nil {
			return BEDUnion{}, fmt.Errorf("interval.NewBEDUnion: line %d: %v", lineIdx, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return BEDUnion{}, err
	}
	log.Printf("BED loaded, %d base(s) covered.", b.totBases)
	return b.finish(), nil
}

// NewBEDUnionFromPath is a wrapper for NewBEDUnion that takes a path instead
// of an io.Reader.  Gzipped files are decompressed transparently.
func NewBEDUnionFromPath(ctx context.Context, path string, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, infile, &err)
	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(reader); err != nil {
			return
		}
		defer func() {
			if e := gz.Close(); e != nil && err == nil {
				err = e
			}
		}()
		reader = gz
	}
	return NewBEDUnion(reader, opts)
}

// Entry represents a single interval, with 0-based coordinates.
type Entry struct {
	ChrName string
	Start0  PosType
	End     PosType
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a contig ID and 0-based interval boundaries.  The interval
// [0, posTypeMax - 1) is returned if there is no positional restriction.
func ParseRegionString(region string) (result Entry, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		return Entry{ChrName: region, Start0: 0, End: posTypeMax - 1}, nil
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty contig ID in %q", region)
		return
	}
	result.ChrName = region[:colonPos]
	rangeStr := region[colonPos+1:]
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int64
		if pos1, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			return
		}
		if pos1 <= 0 {
			err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", rangeStr)
			return
		}
		result.Start0 = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	var start1, end int64
	if start1, err = strconv.ParseInt(rangeStr[:dashPos], 10, 32); err != nil {
		return
	}
	if start1 <= 0 {
		err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", rangeStr[:dashPos])
		return
	}
	// end == posTypeMax is rejected so that the endpoint array never contains
	// repeats.
	if end, err = strconv.ParseInt(rangeStr[dashPos+1:], 10, 64); err != nil {
		return
	}
	if end < start1 || end >= posTypeMax {
		err = fmt.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
		return
	}
	result.Start0 = PosType(start1 - 1)
	result.End = PosType(end)
	return
}

// NewBEDUnionFromEntries initializes a BEDUnion from entries.  Unlike
// NewBEDUnion, entries need not be sorted.  opts.OneBasedInput is ignored
// since Start0 is zero-based by definition.
func NewBEDUnionFromEntries(entries []Entry, opts NewBEDOpts) (BEDUnion, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ChrName != sorted[j].ChrName {
			return sorted[i].ChrName < sorted[j].ChrName
		}
		return sorted[i].Start0 < sorted[j].Start0
	})
	b := newUnionBuilder(opts)
	for _, e := range sorted {
		if err := b.add(e.ChrName, e.Start0, e.End); err != nil {
			return BEDUnion{}, fmt.Errorf("interval.NewBEDUnionFromEntries: %v", err)
		}
	}
	return b.finish(), nil
}
