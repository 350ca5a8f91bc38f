package tssdedup

import (
	"fmt"
	"runtime"
	"strings"
)

// Mode selects the duplicate definition.
type Mode int

const (
	// ModeExact collapses reads that share chromosome, strand, TSS, barcode,
	// and fingerprint.
	ModeExact Mode = iota
	// ModeProximity collapses reads on one chromosome whose consecutive TSSs
	// are at most Opts.MaxDistance apart.
	ModeProximity
)

func (m Mode) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModeProximity:
		return "proximity"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "exact":
		return ModeExact, nil
	case "proximity":
		return ModeProximity, nil
	}
	return 0, fmt.Errorf("tssdedup.ParseMode: unknown mode %q, must be exact or proximity", s)
}

// DefaultMaxDistance is the default Opts.MaxDistance.
const DefaultMaxDistance = 20

// Opts configures Run.
type Opts struct {
	Mode Mode
	// Inputs lists BED12 files, optionally gzipped.  "-" is stdin.
	Inputs []string
	// InputDir, if set, adds every regular file in the directory to Inputs.
	InputDir string
	// Output is the destination path.  "" or "-" is stdout.  A ".gz" path is
	// gzip-compressed.
	Output string
	// MetricsFile, if set, receives the run metrics as a two-line TSV.
	MetricsFile string

	// MaxDistance is the proximity-mode TSS distance.  Negative means
	// DefaultMaxDistance.
	MaxDistance int
	// StrandSpecific keeps proximity clusters on a single strand.  Exact
	// clusters are always strand-specific.
	StrandSpecific bool
	// Sort sorts proximity-mode input into TSS order.  Exact-mode input is
	// always sorted.  Unsorted input yields a *cluster.OrderingViolationError.
	Sort bool

	// TmpDir holds the sorter's temp files.  "" means the system default.
	TmpDir string
	// SortBatchSize is the number of records the sorter keeps in memory.  0
	// means the sorter default.
	SortBatchSize int
	// Parallelism is the number of consolidation workers.  0 means
	// runtime.NumCPU().
	Parallelism int
	// QueueLength is the number of consolidated clusters buffered ahead of
	// the writer.  0 means 64 * Parallelism.
	QueueLength int

	// BarcodeFile lists known barcodes, one per line.  If set, exact-mode
	// barcodes are snap-corrected to the closest known barcode.
	BarcodeFile string
	// BarcodeMaxEdits bounds the corrections.  -1 means unbounded.
	BarcodeMaxEdits int

	// TargetsBED, if set, keeps only reads whose TSS base lies in one of the
	// BED intervals.
	TargetsBED string
	// Regions, if set, keeps only reads whose TSS base lies in one of the
	// regions, given as "chr", "chr:pos", or "chr:start-end" (1-based,
	// inclusive).
	Regions []string
}

func (opts *Opts) validate() error {
	if len(opts.Inputs) == 0 && opts.InputDir == "" {
		return fmt.Errorf("no input: specify input files or an input directory")
	}
	if opts.Mode != ModeExact && opts.Mode != ModeProximity {
		return fmt.Errorf("invalid mode %v", opts.Mode)
	}
	if opts.MaxDistance < 0 {
		opts.MaxDistance = DefaultMaxDistance
	}
	if opts.MaxDistance > 1<<30 {
		return fmt.Errorf("max distance %d out of range", opts.MaxDistance)
	}
	if opts.BarcodeFile != "" && opts.Mode != ModeExact {
		return fmt.Errorf("barcode correction requires exact mode")
	}
	if opts.SortBatchSize < 0 {
		return fmt.Errorf("sort batch size must be non-negative")
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.NumCPU()
	}
	if opts.QueueLength <= 0 {
		opts.QueueLength = 64 * opts.Parallelism
	}
	return nil
}
