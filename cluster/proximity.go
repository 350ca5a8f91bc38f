package cluster

import (
	"fmt"

	"github.com/grailbio/umicount/encoding/bed12"
	"github.com/grailbio/umicount/interval"
)

// ProximityOpts configures a Proximity clusterer.
type ProximityOpts struct {
	// StrandSpecific closes the open cluster when the strand changes, so that
	// clusters never mix strands.  The input must then be ordered by strand
	// first.
	StrandSpecific bool
}

// Proximity implements chained TSS-distance clustering.
type Proximity struct {
	maxDistance interval.PosType
	opts        ProximityOpts

	open    []bed12.Record
	chrom   string
	strand  bed12.Strand
	lastTSS interval.PosType
}

// NewProximity creates a proximity clusterer.  Two consecutive records on the
// same chromosome belong to the same cluster iff their TSSs differ by at most
// maxDistance, which must be non-negative.
func NewProximity(maxDistance int, opts ProximityOpts) *Proximity {
	if maxDistance < 0 {
		panic(fmt.Sprintf("cluster.NewProximity: negative distance %d", maxDistance))
	}
	return &Proximity{maxDistance: interval.PosType(maxDistance), opts: opts}
}

// Add implements Clusterer.
func (p *Proximity) Add(rec bed12.Record) (closed []Cluster, err error) {
	tss := rec.TSS()
	if len(p.open) > 0 {
		sameWindow := rec.Chrom == p.chrom && (!p.opts.StrandSpecific || rec.Strand == p.strand)
		if sameWindow && tss < p.lastTSS {
			return nil, orderingViolation(&rec, p.lastTSS)
		}
		if !sameWindow || tss-p.lastTSS > p.maxDistance {
			closed = append(closed, p.flush())
		}
	}
	if len(p.open) == 0 {
		p.chrom, p.strand = rec.Chrom, rec.Strand
	}
	p.open = append(p.open, rec)
	p.lastTSS = tss
	return closed, nil
}

func (p *Proximity) flush() Cluster {
	c := Cluster{Key: Key{Chrom: p.chrom}, Records: p.open}
	p.open = nil
	return c
}

// Flush implements Clusterer.
func (p *Proximity) Flush() []Cluster {
	if len(p.open) == 0 {
		return nil
	}
	return []Cluster{p.flush()}
}
