package sorter

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/umicount/encoding/bed12"
	"v.io/x/lib/vlog"
)

// Sortshard format is used by temp files written during sorting. The file is
// a recordio, where one recordio block stores a list of serialized records in
// the following format, without padding between records:
//
//   seq uint64        // arrival order of the record.
//   bytes uint32      // Size of the record, in bytes.
//   data [bytes]byte  // the record as a BED12 line, without the newline.
//
// A block ends at its last byte, or at a seq of invalidSeq.  Each recordio
// block is approx. sortShardBlockSize bytes long, pre-compression.  Blocks are
// snappy-compressed unless SortOptions.NoCompressTmpFiles is set; the reader
// learns the setting from its Sorter, so the file has no header.
type sortShardBlock []byte

// sortShardBuf stores contents of a recordio block during writes.
type sortShardBuf struct {
	buf       sortShardBlock
	remaining []byte // part of buf[].
	nRecords  int    // # of records stored in buf.
}

const sortShardBlockSize = 1 << 20   // size of one sortShardBlock.buf
const sortShardRecordHeaderSize = 12 // 8 byte seq + 4 byte record size.

// A seq that's larger than any valid seq.  It terminates a block.
const invalidSeq = math.MaxUint64

// Class for producing a SortShard file
//
// Example:
//   err := errors.Once{}
//   pool := newSortShardBlockPool()
//   w := newSortShardWriter(..., pool, &err)
//   for ... {
//     w.add(entry)
//   }
//   w.finish()
//   if err.Err() != nil { panic(err) }
type sortShardWriter struct {
	rio    recordio.Writer // recordio wrapper for out.
	snappy bool
	err    *errors.Once

	curBlock sortShardBuf // The block currently written to in add().
	lastKey  sortKey
	pool     *sortShardBlockPool
	body     bytes.Buffer
	bw       *bed12.Writer
}

func (w *sortShardWriter) newBuf(minSize int) sortShardBuf {
	buf := w.pool.getBuf(minSize)
	return sortShardBuf{
		buf:       buf,
		remaining: buf,
	}
}

// Create a new sortShardWriter. Any error is reported through errReporter.
func newSortShardWriter(out io.Writer, snappy bool, pool *sortShardBlockPool, errReporter *errors.Once) *sortShardWriter {
	w := &sortShardWriter{
		snappy: snappy,
		err:    errReporter,
		pool:   pool,
	}
	w.bw = bed12.NewWriter(&w.body)
	w.curBlock = w.newBuf(0)
	w.rio = recordio.NewWriter(out, recordio.WriterOpts{
		Marshal: func(scratch []byte, v interface{}) ([]byte, error) {
			return v.(sortShardBlock), nil
		},
	})
	return w
}

// Add a record to the buffer.  Records must be added in increasing key order.
func (w *sortShardWriter) add(e sortEntry) {
	if w.curBlock.nRecords > 0 && e.key.compare(w.lastKey) < 0 {
		vlog.Fatalf("Key %v decreased, last %v", e.key, w.lastKey)
	}
	w.lastKey = e.key
	w.body.Reset()
	if err := w.bw.Write(&e.rec); err != nil {
		w.err.Set(err)
		return
	}
	if err := w.bw.Flush(); err != nil {
		w.err.Set(err)
		return
	}
	body := bytes.TrimSuffix(w.body.Bytes(), []byte{'\n'})
	if w.tryAdd(e.key.seq, body) {
		return // Common case.
	}
	w.flush(sortShardRecordHeaderSize + len(body))
	if !w.tryAdd(e.key.seq, body) {
		vlog.Fatalf("Key: %v", e.key)
	}
}

// Flush any pending data to the file. An error is reported through w.err. "w"
// becomes invalid after the call.
func (w *sortShardWriter) finish() {
	w.flush(0)
	w.pool.putBuf(w.curBlock.buf)
	w.curBlock.buf = nil
	w.err.Set(w.rio.Finish())
}

// flush writes the current block, and starts a new one that can hold at
// least minSize bytes.
func (w *sortShardWriter) flush(minSize int) {
	if w.curBlock.nRecords == 0 {
		w.pool.putBuf(w.curBlock.buf)
		w.curBlock = w.newBuf(minSize)
		return
	}
	b := w.curBlock
	w.curBlock = w.newBuf(minSize)

	data := b.bytes()
	if w.snappy {
		data = snappy.Encode(nil, data)
		w.pool.putBuf(b.buf)
	}
	// The recordio writer marshals asynchronously, so the block must not be
	// reused.
	w.rio.Append(sortShardBlock(data))
	w.rio.Flush()
}

// Returns a buffer that contains records added so far.
func (b *sortShardBuf) bytes() []byte {
	n := len(b.buf) - len(b.remaining)
	return b.buf[:n]
}

func (w *sortShardWriter) tryAdd(seq uint64, body []byte) bool {
	b := &w.curBlock
	if len(b.remaining) < sortShardRecordHeaderSize+len(body) {
		if len(b.remaining) >= sortShardRecordHeaderSize {
			binary.LittleEndian.PutUint64(b.remaining[:8], invalidSeq)
			binary.LittleEndian.PutUint32(b.remaining[8:12], 0xffffffff)
			b.remaining = b.remaining[sortShardRecordHeaderSize:]
		}
		return false
	}
	binary.LittleEndian.PutUint64(b.remaining[:8], seq)
	binary.LittleEndian.PutUint32(b.remaining[8:12], uint32(len(body)))
	copy(b.remaining[sortShardRecordHeaderSize:], body)
	b.remaining = b.remaining[sortShardRecordHeaderSize+len(body):]
	b.nRecords++
	return true
}

// Class for extracting records in a sortShardBlock.
//
// Example:
//   for r.reset(buf); !r.done(); r.next() {
//      vlog.Infof("Key %v", r.key())
//   }
type sortShardBlockParser struct {
	order  Order
	cur    sortEntry
	isDone bool
	buf    []byte // Records that remain to be read.
	err    *errors.Once
}

func (r *sortShardBlockParser) reset(buf sortShardBlock) {
	r.buf = []byte(buf)
	r.next()
	if r.done() && r.err.Err() == nil {
		vlog.Fatalf("empty buf: %v", len(buf))
	}
}

func (r *sortShardBlockParser) next() {
	r.isDone = true
	if len(r.buf) < sortShardRecordHeaderSize {
		// The header is chopped at the end.
		return
	}
	seq := binary.LittleEndian.Uint64(r.buf[:8])
	if seq == invalidSeq {
		return
	}
	recLen := uint64(binary.LittleEndian.Uint32(r.buf[8:12]))
	if uint64(len(r.buf)) < sortShardRecordHeaderSize+recLen {
		return
	}
	rec, err := bed12.ParseLine(r.buf[sortShardRecordHeaderSize : sortShardRecordHeaderSize+recLen])
	if err != nil {
		r.err.Set(errors.E(err, "corrupt sortshard record"))
		return
	}
	r.buf = r.buf[sortShardRecordHeaderSize+recLen:]
	r.cur = sortEntry{key: makeSortKey(r.order, &rec, seq), rec: rec}
	r.isDone = false
}

func (r *sortShardBlockParser) done() bool {
	return r.isDone
}

func (r *sortShardBlockParser) key() sortEntry {
	if r.done() {
		vlog.Fatal(r)
	}
	return r.cur
}

// Class for reading a SortShard file.
//
// Example:
//   err := errors.Once{}
//   pool := newSortShardBlockPool()
//   r := newSortShardReader(..., pool, &err)
//   for r.scan() {
//     use r.key()
//   }
//   if err.Err() != nil { panic(err) }
type sortShardReader struct {
	path    string
	rawIn   file.File
	rio     recordio.Scanner
	snappy  bool
	pool    *sortShardBlockPool
	err     *errors.Once
	lastKey sortEntry // last key read.
	started bool

	parser sortShardBlockParser
	buf    []byte
	ch     chan sortShardBlock
	// draining becomes 1 on drain(). It tells asyncRead goroutine to finish
	// asap. It must be accessed via acquire-loads+release-stores.
	draining int32
}

// Create a reader for reading SortShard file "path". Any error is reported
// through errReporter.
func newSortShardReader(path string, order Order, snappy bool,
	pool *sortShardBlockPool, errReporter *errors.Once) *sortShardReader {
	r := &sortShardReader{
		path:   path,
		snappy: snappy,
		pool:   pool,
		err:    errReporter,
		// The parser is initially at done() state.
		parser: sortShardBlockParser{order: order, isDone: true, err: errReporter},
		ch:     make(chan sortShardBlock),
	}

	ctx := vcontext.Background()
	var err error
	r.rawIn, err = file.Open(ctx, path)
	if err != nil {
		r.err.Set(err)
		close(r.ch)
		return r
	}
	r.rio = recordio.NewScanner(r.rawIn.Reader(ctx), recordio.ScannerOpts{})
	vlog.VI(1).Infof("%v: created shard reader", path)
	go func() {
		r.asyncRead()
		r.err.Set(r.rio.Finish())
		r.err.Set(r.rawIn.Close(ctx))
		close(r.ch)
	}()
	return r
}

func (r *sortShardReader) scan() bool {
	if !r.parser.done() {
		r.parser.next()
	}
	for r.parser.done() {
		if r.buf != nil {
			r.pool.putBuf(r.buf)
			r.buf = nil
		}
		buf, ok := <-r.ch
		if !ok {
			return false
		}
		r.buf = buf
		r.parser.reset(buf)
	}
	if r.started && r.parser.key().key.compare(r.lastKey.key) < 0 {
		vlog.Fatalf("Key %v decreased, last %v", r.parser.key().key, r.lastKey.key)
	}
	r.lastKey = r.parser.key()
	r.started = true
	return true
}

// Drain should be called when quitting reads before reaching the end of
// shard. It cleans up the reader state.  It's ok to call drain() after
// successful end of reads.
func (r *sortShardReader) drain() {
	go func() {
		n := 0
		atomic.StoreInt32(&r.draining, 1)
		for range r.ch {
			n++
		}
		vlog.VI(1).Infof("drain %v: dropped %d blocks", r.path, n)
	}()
}

// Return the current record.
//
// REQUIRES: scan() returned true.
func (r *sortShardReader) key() sortEntry {
	return r.parser.key()
}

// Read a sequence of raw sortShardBlocks and send them to "r.ch".
func (r *sortShardReader) asyncRead() {
	for r.rio.Scan() && atomic.LoadInt32(&r.draining) == 0 {
		rioData := r.rio.Get().([]byte)
		sorted := r.pool.getBuf(0)
		if r.snappy {
			var err error
			sorted, err = snappy.Decode(sorted, rioData)
			if err != nil {
				r.err.Set(err)
				break
			}
		} else {
			if len(sorted) < len(rioData) {
				sorted = make([]byte, len(rioData))
			}
			sorted = sorted[:len(rioData)]
			copy(sorted, rioData)
		}
		r.ch <- sorted // This may block
	}
	r.err.Set(r.rio.Err())
}

// Freepool of sortShardBlocks.
type sortShardBlockPool struct {
	sync.Pool
}

// Get a sortShardBlock of at least max(minSize, sortShardBlockSize) bytes
// from the pool. The caller should call putBuf(buf) after use.
func (p *sortShardBlockPool) getBuf(minSize int) sortShardBlock {
	size := sortShardBlockSize
	if minSize > size {
		size = minSize
	}
	b := p.Get().(sortShardBlock)
	if cap(b) < size {
		return make(sortShardBlock, size)
	}
	return b[:size]
}

func (p *sortShardBlockPool) putBuf(b sortShardBlock) {
	if b != nil {
		p.Put(b)
	}
}

func newSortShardBlockPool() *sortShardBlockPool {
	return &sortShardBlockPool{sync.Pool{New: func() interface{} { return sortShardBlock{} }}}
}
