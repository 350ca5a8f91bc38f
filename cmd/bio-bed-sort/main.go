package main

// bio-bed-sort sorts BED12 records into TSS order.
//
// Usage: bio-bed-sort [-order strand-chrom-tss] [-output sorted.bed] input.bed...

import (
	"flag"
	"io"
	"os"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/umicount/cmd/bio-bed-sort/sorter"
	"github.com/grailbio/umicount/encoding/bed12"
)

var (
	orderFlag         = flag.String("order", "strand-chrom-tss", "Sort order: 'strand-chrom-tss' (plus strand first) or 'chrom-tss'")
	outputFlag        = flag.String("output", "", "Output file; stdout if empty")
	tmpDirFlag        = flag.String("tmp-dir", "", "Directory for temp files")
	sortBatchSizeFlag = flag.Int("sort-batch-size", sorter.DefaultSortBatchSize, "Number of records to sort in memory")
	parallelismFlag   = flag.Int("parallelism", sorter.DefaultParallelism, "Number of background sorts")
	noCompressFlag    = flag.Bool("no-compress-tmp-files", false, "Don't snappy-compress temp files")
)

// readInput adds every record of inPath to s.  "-" is stdin.
func readInput(inPath string, s *sorter.Sorter) error {
	add := func(rec *bed12.Record) error {
		s.Add(*rec)
		return nil
	}
	if inPath != "-" {
		return bed12.Scan(vcontext.Background(), inPath, add)
	}
	sc := bed12.NewScanner(os.Stdin, "(stdin)")
	var rec bed12.Record
	for sc.Scan(&rec) {
		s.Add(rec)
	}
	return sc.Err()
}

func writeOutput(s *sorter.Sorter, outPath string) (err error) {
	ctx := vcontext.Background()
	var out io.Writer = os.Stdout
	if outPath != "" && outPath != "-" {
		var f file.File
		if f, err = file.Create(ctx, outPath); err != nil {
			return err
		}
		defer file.CloseAndReport(ctx, f, &err)
		out = f.Writer(ctx)
	}
	w := bed12.NewWriter(out)
	if err = s.Scan(func(rec bed12.Record) error { return w.Write(&rec) }); err != nil {
		return err
	}
	return w.Flush()
}

func main() {
	flag.Usage = func() {
		os.Stderr.WriteString(`Usage: bio-bed-sort [flags] input.bed...

Reads BED12 records from the inputs ('-' is stdin), and writes them sorted by
TSS: the start of plus-strand reads and the end of minus-strand reads.
`)
		flag.PrintDefaults()
	}
	shutdown := grail.Init()
	defer shutdown()

	order, err := sorter.ParseOrder(*orderFlag)
	if err != nil {
		log.Fatalf("%v", err)
	}
	args := flag.Args()
	if len(args) == 0 {
		args = []string{"-"}
	}
	s := sorter.NewSorter(sorter.SortOptions{
		Order:              order,
		SortBatchSize:      *sortBatchSizeFlag,
		Parallelism:        *parallelismFlag,
		NoCompressTmpFiles: *noCompressFlag,
		TmpDir:             *tmpDirFlag,
	})
	for _, path := range args {
		if err := readInput(path, s); err != nil {
			log.Fatalf("%s: %v", path, err)
		}
	}
	if err := s.Close(); err != nil {
		log.Fatalf("sort: %v", err)
	}
	if err := writeOutput(s, *outputFlag); err != nil {
		log.Fatalf("write %s: %v", *outputFlag, err)
	}
}
