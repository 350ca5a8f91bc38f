package cluster

import (
	"fmt"

	"github.com/grailbio/umicount/encoding/bed12"
	"github.com/grailbio/umicount/interval"
)

// Key identifies the duplicates of one molecule.  Barcode and Fingerprint are
// empty for proximity clusters.
type Key struct {
	Chrom       string
	Barcode     string
	Fingerprint string
}

func (k Key) String() string {
	if k.Barcode == "" && k.Fingerprint == "" {
		return k.Chrom
	}
	return k.Chrom + ":" + bed12.IdentityName(k.Barcode, k.Fingerprint)
}

// Cluster is a non-empty group of records, in input order.
type Cluster struct {
	Key     Key
	Records []bed12.Record
}

// Len returns the number of records in the cluster.
func (c *Cluster) Len() int { return len(c.Records) }

// Clusterer groups a TSS-ordered record stream.
type Clusterer interface {
	// Add consumes the next record.  It returns the clusters closed by rec, in
	// emission order.  The record is retained; the caller must not modify its
	// block slices afterwards.
	Add(rec bed12.Record) ([]Cluster, error)
	// Flush closes and returns the open clusters.  The clusterer may be reused
	// for a new stream afterwards.
	Flush() []Cluster
}

// OrderingViolationError reports a record whose TSS is smaller than the TSS of
// a preceding record on the same chromosome and strand.
type OrderingViolationError struct {
	Chrom  string
	Strand bed12.Strand
	// Prev is the TSS of the preceding record, TSS the offending one.
	Prev, TSS interval.PosType
	// Name is the name field of the offending record.
	Name string
}

func (e *OrderingViolationError) Error() string {
	return fmt.Sprintf("cluster: input not sorted by TSS: %s:%d(%v) %q follows TSS %d",
		e.Chrom, e.TSS, e.Strand, e.Name, e.Prev)
}

func orderingViolation(rec *bed12.Record, prev interval.PosType) error {
	return &OrderingViolationError{
		Chrom:  rec.Chrom,
		Strand: rec.Strand,
		Prev:   prev,
		TSS:    rec.TSS(),
		Name:   rec.Name,
	}
}
