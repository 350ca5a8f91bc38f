package cluster

import (
	"github.com/grailbio/umicount/encoding/bed12"
	"github.com/grailbio/umicount/interval"
)

// Exact groups the records sharing one TSS by identity Key.  A run is a
// maximal sequence of consecutive records with equal chromosome, strand, and
// TSS; every run is partitioned separately.
type Exact struct {
	chrom  string
	strand bed12.Strand
	tss    interval.PosType

	// Partitions of the current run, in order of first appearance.
	keys  []Key
	parts map[Key]int
	recs  []bed12.Record
	index []int // partition of recs[i]
}

// NewExact creates an exact-identity clusterer.
func NewExact() *Exact {
	return &Exact{parts: map[Key]int{}}
}

// Add implements Clusterer.  It returns a *bed12.FormatError if the name of rec
// lacks the BC or FP tag.
func (e *Exact) Add(rec bed12.Record) (closed []Cluster, err error) {
	barcode, fingerprint, err := bed12.Identity(&rec)
	if err != nil {
		return nil, err
	}
	tss := rec.TSS()
	if len(e.keys) > 0 && (rec.Chrom != e.chrom || rec.Strand != e.strand || tss != e.tss) {
		if rec.Chrom == e.chrom && rec.Strand == e.strand && tss < e.tss {
			return nil, orderingViolation(&rec, e.tss)
		}
		closed = e.Flush()
	}
	if len(e.keys) == 0 {
		e.chrom, e.strand, e.tss = rec.Chrom, rec.Strand, tss
	}
	key := Key{Chrom: rec.Chrom, Barcode: barcode, Fingerprint: fingerprint}
	if _, ok := e.parts[key]; !ok {
		e.parts[key] = len(e.keys)
		e.keys = append(e.keys, key)
	}
	e.recs = append(e.recs, rec)
	e.index = append(e.index, e.parts[key])
	return closed, nil
}

// Flush implements Clusterer.
func (e *Exact) Flush() []Cluster {
	if len(e.keys) == 0 {
		return nil
	}
	clusters := make([]Cluster, len(e.keys))
	for i, key := range e.keys {
		clusters[i].Key = key
	}
	for i, rec := range e.recs {
		c := &clusters[e.index[i]]
		c.Records = append(c.Records, rec)
	}
	e.keys = nil
	e.recs = nil
	e.index = nil
	e.parts = map[Key]int{}
	return clusters
}
