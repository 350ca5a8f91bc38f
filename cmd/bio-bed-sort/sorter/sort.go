package sorter

import (
	"fmt"
	"io/ioutil"
	"os"
	"sort"
	"sync"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/umicount/encoding/bed12"
	"github.com/grailbio/umicount/interval"
	"v.io/x/lib/vlog"
)

// DefaultSortBatchSize is the default number of records to keep in
// memory before resorting to external sorting.
const DefaultSortBatchSize = 1 << 20

// DefaultParallelism is the default value for SortOptions.Parallelism.
const DefaultParallelism = 2

// Order defines the sort order of records.
type Order int

const (
	// ByChromTSS sorts by chromosome name, then TSS.  Strands are
	// interleaved.
	ByChromTSS Order = iota
	// ByStrandChromTSS sorts all plus-strand records before all minus-strand
	// records, and by chromosome name then TSS within a strand.
	ByStrandChromTSS
)

func (o Order) String() string {
	switch o {
	case ByChromTSS:
		return "chrom-tss"
	case ByStrandChromTSS:
		return "strand-chrom-tss"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder is the inverse of Order.String.
func ParseOrder(s string) (Order, error) {
	for _, o := range []Order{ByChromTSS, ByStrandChromTSS} {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("sorter.ParseOrder: unknown order %q", s)
}

// SortOptions controls options passed to NewSorter.
type SortOptions struct {
	// Order is the sort order of the output.
	Order Order

	// SortBatchSize is the number of records to keep in memory before
	// resorting to external sorting.  Not for general use; the default value
	// should suffice for most applications.
	SortBatchSize int

	// Parallelism limits the number of background sorts. Max memory
	// consumption of the sorter grows linearly with this value. If <= 0,
	// DefaultParallelism is used.
	Parallelism int

	// NoCompressTmpFiles, if false (default), compress sortshards using snappy.
	NoCompressTmpFiles bool

	// TmpDir defines the directory to store temp files created during merge.  ""
	// means the system default, usually /tmp.
	TmpDir string
}

// sortKey is the sort order of one record.  seq is the order of arrival, which
// makes the sort stable.
type sortKey struct {
	minus bool // strand, used only by ByStrandChromTSS.
	chrom string
	tss   interval.PosType
	seq   uint64
}

func makeSortKey(order Order, rec *bed12.Record, seq uint64) sortKey {
	return sortKey{
		minus: order == ByStrandChromTSS && rec.Strand == bed12.Minus,
		chrom: rec.Chrom,
		tss:   rec.TSS(),
		seq:   seq,
	}
}

// Return -1, 0, 1 if k0 < k1, k0==k1, k0 > k1, respectively.
func (k sortKey) compare(other sortKey) int {
	if k.minus != other.minus {
		if !k.minus {
			return -1
		}
		return 1
	}
	if k.chrom != other.chrom {
		if k.chrom < other.chrom {
			return -1
		}
		return 1
	}
	switch {
	case k.tss < other.tss:
		return -1
	case k.tss > other.tss:
		return 1
	case k.seq < other.seq:
		return -1
	case k.seq > other.seq:
		return 1
	}
	return 0
}

func (k sortKey) String() string {
	return fmt.Sprintf("(%v,%s,%d,#%d)", k.minus, k.chrom, k.tss, k.seq)
}

// sortEntry is a record together with its sort key.
type sortEntry struct {
	key sortKey
	rec bed12.Record
}

// Sorter sorts a stream of BED12 records into TSS order.  Records are kept in
// memory up to SortBatchSize; larger inputs are sorted in batches on
// background goroutines, spilled to snappy-compressed recordio files under
// TmpDir, and N-way merged by Scan.
//
// Records that compare equal keep their order of arrival (i.e., stable sort).
//
// Example:
//   s := sorter.NewSorter(sorter.SortOptions{Order: sorter.ByStrandChromTSS})
//   for _, rec := range recordlist {
//     s.Add(rec)
//   }
//   if err := s.Close(); err != nil { ... }
//   err := s.Scan(func(rec bed12.Record) error { ... })
type Sorter struct {
	options       SortOptions
	sortBlockPool *sortShardBlockPool
	totalRecords  uint64
	recs          []sortEntry
	spilled       bool
	err           errors.Once
	bgSorterCh    chan []sortEntry

	wg     sync.WaitGroup
	mu     sync.Mutex
	shards []string // pathnames of temp sortshard files.
}

// NewSorter creates a Sorter object.
func NewSorter(options SortOptions) *Sorter {
	if options.SortBatchSize <= 0 {
		options.SortBatchSize = DefaultSortBatchSize
	}
	if options.Parallelism <= 0 {
		options.Parallelism = DefaultParallelism
	}
	vlog.VI(1).Infof("New Sorter: %+v", options)
	sorter := &Sorter{
		options:       options,
		sortBlockPool: newSortShardBlockPool(),
		bgSorterCh:    make(chan []sortEntry, options.Parallelism),
	}
	for i := 0; i < options.Parallelism; i++ {
		sorter.wg.Add(1)
		go func() {
			for batch := range sorter.bgSorterCh {
				path := sorter.sortRecords(batch)
				if path == "" {
					continue
				}
				sorter.mu.Lock()
				sorter.shards = append(sorter.shards, path)
				sorter.mu.Unlock()
			}
			sorter.wg.Done()
		}()
	}
	return sorter
}

// Add adds a record to the sorter. The sorter takes ownership of rec's block
// slices.
func (s *Sorter) Add(rec bed12.Record) {
	s.recs = append(s.recs, sortEntry{makeSortKey(s.options.Order, &rec, s.totalRecords), rec})
	s.totalRecords++
	if len(s.recs) >= s.options.SortBatchSize {
		s.startGenerateSortShard()
	}
}

// Len returns the number of records added so far.
func (s *Sorter) Len() int { return int(s.totalRecords) }

func (s *Sorter) startGenerateSortShard() {
	s.spilled = true
	s.bgSorterCh <- s.recs
	s.recs = nil
}

func sortEntries(recs []sortEntry) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].key.compare(recs[j].key) < 0
	})
}

// sortRecords sorts one batch and writes it to a new sortshard file.  It
// returns the path of the file, or "" on error.
func (s *Sorter) sortRecords(records []sortEntry) string {
	vlog.VI(1).Infof("Sorting %d records", len(records))
	temp, err := ioutil.TempFile(s.options.TmpDir, "bedsort")
	if err != nil {
		s.err.Set(err)
		return ""
	}
	sortEntries(records)
	writer := newSortShardWriter(temp, !s.options.NoCompressTmpFiles, s.sortBlockPool, &s.err)
	for _, e := range records {
		writer.add(e)
	}
	writer.finish()
	s.err.Set(temp.Close())
	return temp.Name()
}

// Close must be called after adding all the records. It blocks the caller
// until all background sorts are done.  After Close, Scan may be called
// once.
func (s *Sorter) Close() error {
	if s.spilled && len(s.recs) > 0 {
		s.startGenerateSortShard()
	}
	close(s.bgSorterCh)
	s.wg.Wait()
	if !s.spilled {
		sortEntries(s.recs)
	}
	return s.err.Err()
}

// Scan calls fn on every record in sort order, then removes the temp files.
// It stops at the first error returned by fn.
//
// REQUIRES: Close has been called.
func (s *Sorter) Scan(fn func(rec bed12.Record) error) error {
	defer s.removeShards()
	if err := s.err.Err(); err != nil {
		return err
	}
	if !s.spilled {
		recs := s.recs
		s.recs = nil
		for i := range recs {
			if err := fn(recs[i].rec); err != nil {
				return err
			}
		}
		return nil
	}
	vlog.VI(1).Infof("Merging %d sortshards", len(s.shards))
	readers := make([]*sortShardReader, len(s.shards))
	for i, path := range s.shards {
		readers[i] = newSortShardReader(path, s.options.Order, !s.options.NoCompressTmpFiles, s.sortBlockPool, &s.err)
	}
	var cbErr error
	internalMergeShards(readers, func(e sortEntry) bool {
		if cbErr = fn(e.rec); cbErr != nil {
			return false
		}
		return true
	})
	if cbErr != nil {
		return cbErr
	}
	return s.err.Err()
}

// Discard drops the sorted records and removes the temp files, for callers
// that abandon the sort after Close.
func (s *Sorter) Discard() {
	s.recs = nil
	s.removeShards()
}

func (s *Sorter) removeShards() {
	for _, path := range s.shards {
		if err := os.Remove(path); err != nil {
			vlog.Errorf("sort %v: failed to remove sorter tmp file: %v (%v)", path, err, s.err.Err())
		}
	}
	s.shards = nil
}

// A thin wrapper around sortShardReader that makes it an llrb item.
type mergeLeaf struct {
	// seq is a number (0,1,2..) arbitrarily assigned to distinguish mergeLeafs
	// that are merged into one destination.
	seq    int
	name   string // the path of shard file; for logging only.
	reader *sortShardReader
	done   bool // reader.scan() returned false?
}

func newMergeLeaf(seq int, reader *sortShardReader) *mergeLeaf {
	leaf := mergeLeaf{
		seq:    seq,
		name:   reader.path,
		reader: reader,
	}
	if !leaf.reader.scan() {
		return nil
	}
	return &leaf
}

func (l *mergeLeaf) Compare(c1 llrb.Comparable) int {
	l1 := c1.(*mergeLeaf)
	if c := l.reader.key().key.compare(l1.reader.key().key); c != 0 {
		return c
	}
	return l.seq - l1.seq
}

// Merge sortShards. readCallback is called sequentially for each record in
// sort order.  If readCallback returns false, this function exits
// immediately.
func internalMergeShards(shards []*sortShardReader, readCallback func(e sortEntry) bool) {
	// Sort all the inputs using a binary tree. The hope is that the child at
	// the top of the tree will stay at the top for many records, so the tree
	// maintains the sorted order in amortized O(1) time.
	leafs := llrb.Tree{}
	for i, shard := range shards {
		if c := newMergeLeaf(i, shard); c != nil {
			vlog.VI(1).Infof("Leaf %v created", c.name)
			leafs.Insert(c)
		}
	}
	vlog.VI(1).Infof("Merging %d shards, %d leafs active", len(shards), leafs.Len())

	done := false
	for !done && leafs.Len() > 0 {
		// top is the smallest child. We read from top.  next is the 2nd
		// smallest child, or nil if top is the only child in the tree.
		var top, next *mergeLeaf
		nthiter := 0
		leafs.Do(func(item llrb.Comparable) bool {
			nthiter++
			if nthiter == 1 {
				top = item.(*mergeLeaf)
				return false
			}
			next = item.(*mergeLeaf)
			return true
		})
		// Read records from top, until it becomes larger than next.
		for {
			if !readCallback(top.reader.key()) {
				done = true
				break
			}
			top.done = !top.reader.scan()
			if top.done || (next != nil && next.reader.key().key.compare(top.reader.key().key) < 0) {
				break
			}
		}
		// Move top into the proper place in the tree.
		leafs.DeleteMin()
		if !top.done {
			leafs.Insert(top)
		}
	}
	for _, shard := range shards {
		shard.drain()
	}
}
