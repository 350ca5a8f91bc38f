package tssdedup

import (
	"fmt"

	"github.com/grailbio/umicount/cluster"
	"github.com/grailbio/umicount/encoding/bed12"
	"github.com/grailbio/umicount/interval"
)

// Consolidate synthesizes the record that replaces the members of c.  It
// returns a *bed12.FormatError if a member has an invalid block layout.
func Consolidate(c cluster.Cluster, mode Mode) (bed12.Record, error) {
	if len(c.Records) == 0 {
		panic(fmt.Sprintf("internal error: tssdedup.Consolidate called with empty cluster %v", c.Key))
	}
	var (
		ivs    []interval.Interval
		anchor = &c.Records[0]
		err    error
	)
	for i := range c.Records {
		r := &c.Records[i]
		if ivs, err = bed12.AppendAbsoluteBlocks(ivs, r); err != nil {
			return bed12.Record{}, err
		}
		if r.Start < anchor.Start {
			anchor = r
		}
	}
	origin, blocks := interval.MergeBlocks(ivs)
	first, last := blocks[0], blocks[len(blocks)-1]
	out := bed12.Record{
		Chrom:       anchor.Chrom,
		Start:       origin,
		End:         origin + last.Offset + last.Size,
		Score:       len(c.Records),
		Strand:      anchor.Strand,
		Color:       bed12.DefaultColor,
		BlockSizes:  make([]interval.PosType, len(blocks)),
		BlockStarts: make([]interval.PosType, len(blocks)),
	}
	for i, b := range blocks {
		out.BlockSizes[i] = b.Size
		out.BlockStarts[i] = b.Offset
	}
	if out.Strand == bed12.Plus {
		out.ThickStart, out.ThickEnd = out.Start, out.Start+first.Size
	} else {
		out.ThickStart, out.ThickEnd = out.End-last.Size, out.End
	}
	if mode == ModeExact {
		out.Name = bed12.IdentityName(c.Key.Barcode, c.Key.Fingerprint)
	} else {
		out.Name = fmt.Sprintf("%s:%d:%d:%v", out.Chrom, out.Start, out.End, out.Strand)
	}
	return out, nil
}
