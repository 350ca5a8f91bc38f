package main

/*
  bio-tss-dedup collapses UMI duplicates in TSS-anchored BED12 reads. For
  more information, see github.com/grailbio/umicount/tssdedup/doc.go

  Usage: bio-tss-dedup [flags] [input.bed...]
*/

import (
	"flag"
	"os"
	"runtime"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/umicount/tssdedup"
)

var (
	mode            = flag.String("mode", "exact", "Duplicate definition: 'exact' (TSS, barcode and fingerprint) or 'proximity' (chained TSS distance)")
	inputDir        = flag.String("input-dir", "", "Read every file in this directory, in addition to the positional arguments")
	outputPath      = flag.String("output", "", "Output filename; stdout if empty. A .gz suffix enables gzip")
	metricsFile     = flag.String("metrics", "", "Output metrics file")
	tagDistance     = flag.Int("tag-distance", tssdedup.DefaultMaxDistance, "Maximum TSS distance between consecutive reads of a proximity cluster")
	strandSpecific  = flag.Bool("strand-specific", false, "Never merge reads on different strands in proximity mode")
	sortInput       = flag.Bool("sort", false, "Sort the input in proximity mode. Exact mode always sorts")
	tmpDir          = flag.String("tmp-dir", "", "Directory for sort temp files")
	sortBatchSize   = flag.Int("sort-batch-size", 0, "Number of records to sort in memory before spilling to disk; 0 means the default")
	parallelism     = flag.Int("parallelism", runtime.NumCPU(), "Number of parallel consolidation workers")
	queueLength     = flag.Int("queue-length", runtime.NumCPU()*64, "Number of consolidated records to queue while waiting for the writer")
	barcodeFile     = flag.String("barcode-file", "", "Snap-correct barcodes to the known barcodes in this file (exact mode)")
	barcodeMaxEdits = flag.Int("barcode-max-edits", -1, "Correct barcodes with at most this edit distance; -1 means no limit")
	targetsBED      = flag.String("targets", "", "Keep only reads whose TSS is in this BED file")
	regions         = flag.String("regions", "", "Comma-separated regions (chr, chr:pos or chr:start-end, 1-based); keep only reads whose TSS is in one of them")
)

func main() {
	flag.Usage = func() {
		os.Stderr.WriteString("Usage: bio-tss-dedup [flags] [input.bed ...]\n")
		flag.PrintDefaults()
	}
	shutdown := grail.Init()
	defer shutdown()

	m, err := tssdedup.ParseMode(*mode)
	if err != nil {
		log.Fatalf("%v", err)
	}
	opts := tssdedup.Opts{
		Mode:            m,
		Inputs:          flag.Args(),
		InputDir:        *inputDir,
		Output:          *outputPath,
		MetricsFile:     *metricsFile,
		MaxDistance:     *tagDistance,
		StrandSpecific:  *strandSpecific,
		Sort:            *sortInput,
		TmpDir:          *tmpDir,
		SortBatchSize:   *sortBatchSize,
		Parallelism:     *parallelism,
		QueueLength:     *queueLength,
		BarcodeFile:     *barcodeFile,
		BarcodeMaxEdits: *barcodeMaxEdits,
		TargetsBED:      *targetsBED,
	}
	if *regions != "" {
		opts.Regions = strings.Split(*regions, ",")
	}
	if len(opts.Inputs) == 0 && opts.InputDir == "" {
		opts.Inputs = []string{"-"}
	}

	ctx := vcontext.Background()
	metrics, err := tssdedup.Run(ctx, &opts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting, %v", metrics)
}
