package bed12

import (
	"bytes"
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/umicount/interval"
)

// Writer writes BED12 lines.
type Writer struct {
	w       *tsv.Writer
	scratch []byte
}

// NewWriter creates a Writer on top of w.  Flush must be called after the
// last Write.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: tsv.NewWriter(w)}
}

func (w *Writer) appendPosList(list []interval.PosType) string {
	w.scratch = w.scratch[:0]
	for i, v := range list {
		if i > 0 {
			w.scratch = append(w.scratch, ',')
		}
		w.scratch = strconv.AppendInt(w.scratch, int64(v), 10)
	}
	return string(w.scratch)
}

// Write appends r as one line.  blockCount is derived from len(r.BlockSizes),
// and the block lists are written without a trailing comma.
func (w *Writer) Write(r *Record) error {
	w.w.WriteString(r.Chrom)
	w.w.WriteUint32(uint32(r.Start))
	w.w.WriteUint32(uint32(r.End))
	w.w.WriteString(r.Name)
	w.w.WriteString(strconv.Itoa(r.Score))
	w.w.WriteByte(byte(r.Strand))
	w.w.WriteUint32(uint32(r.ThickStart))
	w.w.WriteUint32(uint32(r.ThickEnd))
	w.w.WriteString(r.Color)
	w.w.WriteUint32(uint32(len(r.BlockSizes)))
	w.w.WriteString(w.appendPosList(r.BlockSizes))
	w.w.WriteString(w.appendPosList(r.BlockStarts))
	return w.w.EndLine()
}

// Flush writes buffered lines to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Marshal returns r as a newline-terminated BED12 line.
func Marshal(r *Record) []byte {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Write(r); err != nil {
		panic(err)
	}
	if err := w.Flush(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
