package tssdedup

import (
	"context"
	"fmt"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Metrics summarizes one Run.
type Metrics struct {
	// RecordsRead is the number of records read from the inputs.
	RecordsRead int
	// RecordsFiltered is the number of records dropped because their TSS is
	// outside the target regions.
	RecordsFiltered int
	// BarcodesCorrected is the number of records whose barcode was snapped to
	// a different known barcode.
	BarcodesCorrected int
	// Clusters is the number of consolidated records written.
	Clusters int
	// Checksum is the sum of the seahash of every output line.  It does not
	// depend on the output order, so runs that differ only in the order of
	// clusters within a TSS have equal checksums.
	Checksum uint64
}

// DuplicatesCollapsed returns the number of records that were merged into
// another record.
func (m *Metrics) DuplicatesCollapsed() int {
	return m.RecordsRead - m.RecordsFiltered - m.Clusters
}

// DuplicationRate returns the fraction of clustered records that were
// duplicates.
func (m *Metrics) DuplicationRate() float64 {
	n := m.RecordsRead - m.RecordsFiltered
	if n == 0 {
		return 0
	}
	return float64(m.DuplicatesCollapsed()) / float64(n)
}

func (m *Metrics) addLine(line []byte) {
	m.Clusters++
	m.Checksum += seahash.Sum64(line)
}

const metricsHeader = "RECORDS_READ\tRECORDS_FILTERED\tBARCODES_CORRECTED\tCLUSTERS\tDUPLICATES_COLLAPSED\tPERCENT_DUPLICATION\tCHECKSUM"

// String returns the metrics as one TSV line matching metricsHeader.
func (m *Metrics) String() string {
	return fmt.Sprintf("%d\t%d\t%d\t%d\t%d\t%0.6f\t%016x",
		m.RecordsRead, m.RecordsFiltered, m.BarcodesCorrected, m.Clusters,
		m.DuplicatesCollapsed(), 100*m.DuplicationRate(), m.Checksum)
}

func writeMetrics(ctx context.Context, opts *Opts, m *Metrics) (err error) {
	f, err := file.Create(ctx, opts.MetricsFile)
	if err != nil {
		return errors.E(err, "couldn't create metrics file:", opts.MetricsFile)
	}
	defer file.CloseAndReport(ctx, f, &err)
	s := "# bio-tss-dedup mode: " + opts.Mode.String() + "\n" + metricsHeader + "\n" + m.String() + "\n"
	if _, err = f.Writer(ctx).Write([]byte(s)); err != nil {
		return errors.E(err, "error writing to metrics file:", opts.MetricsFile)
	}
	return nil
}
