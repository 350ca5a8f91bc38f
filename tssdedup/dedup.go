package tssdedup

import (
	"context"
	"io"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/umicount/cluster"
	"github.com/grailbio/umicount/cmd/bio-bed-sort/sorter"
	"github.com/grailbio/umicount/encoding/bed12"
	"github.com/grailbio/umicount/umi"
	"github.com/klauspost/compress/gzip"
)

func newClusterer(opts *Opts) cluster.Clusterer {
	if opts.Mode == ModeExact {
		return cluster.NewExact()
	}
	return cluster.NewProximity(opts.MaxDistance, cluster.ProximityOpts{StrandSpecific: opts.StrandSpecific})
}

// sortOrder returns the order expected by the clusterer of opts.Mode.
func sortOrder(opts *Opts) sorter.Order {
	if opts.Mode == ModeExact || opts.StrandSpecific {
		return sorter.ByStrandChromTSS
	}
	return sorter.ByChromTSS
}

// openOutput opens opts.Output for writing.  The returned closer flushes and
// closes everything it opened.
func openOutput(ctx context.Context, opts *Opts) (io.Writer, func() error, error) {
	if opts.Output == "" || opts.Output == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	out, err := file.Create(ctx, opts.Output)
	if err != nil {
		return nil, nil, errors.E(err, "create output", opts.Output)
	}
	if fileio.DetermineType(opts.Output) != fileio.Gzip {
		return out.Writer(ctx), func() error { return out.Close(ctx) }, nil
	}
	gz := gzip.NewWriter(out.Writer(ctx))
	return gz, func() error {
		err := gz.Close()
		if e := out.Close(ctx); err == nil {
			err = e
		}
		return err
	}, nil
}

// Run deduplicates the inputs of opts and writes the consolidated records.
func Run(ctx context.Context, opts *Opts) (metrics *Metrics, err error) {
	if err = opts.validate(); err != nil {
		return nil, errors.E(err, "tssdedup.Run")
	}
	log.Printf("tssdedup: mode %v, max distance %d, parallelism %d",
		opts.Mode, opts.MaxDistance, opts.Parallelism)
	paths, err := listInputs(ctx, opts)
	if err != nil {
		return nil, err
	}
	filter, err := newTargetFilter(ctx, opts)
	if err != nil {
		return nil, err
	}
	var corrector *umi.SnapCorrector
	if opts.BarcodeFile != "" {
		if corrector, err = umi.NewSnapCorrectorFromPath(ctx, opts.BarcodeFile, opts.BarcodeMaxEdits); err != nil {
			return nil, errors.E(err, "load barcodes", opts.BarcodeFile)
		}
	}

	w, closeOutput, err := openOutput(ctx, opts)
	if err != nil {
		return nil, err
	}
	metrics = &Metrics{}
	p := newPipeline(opts, bed12.NewWriter(w), metrics)
	clusterer := newClusterer(opts)
	emit := func(rec bed12.Record) error {
		closed, err := clusterer.Add(rec)
		if err != nil {
			return err
		}
		return p.push(closed)
	}

	var s *sorter.Sorter
	if opts.Mode == ModeExact || opts.Sort {
		s = sorter.NewSorter(sorter.SortOptions{
			Order:         sortOrder(opts),
			SortBatchSize: opts.SortBatchSize,
			TmpDir:        opts.TmpDir,
		})
	}
	readErr := scanInputs(ctx, paths, func(rec *bed12.Record) error {
		metrics.RecordsRead++
		if filter != nil && !filter.keep(rec) {
			metrics.RecordsFiltered++
			return nil
		}
		if corrector != nil {
			corrected, err := correctBarcode(corrector, rec)
			if err != nil {
				return err
			}
			if corrected {
				metrics.BarcodesCorrected++
			}
		}
		if s != nil {
			s.Add(*rec)
			return nil
		}
		return emit(*rec)
	})
	if s != nil {
		if err := s.Close(); err != nil && readErr == nil {
			readErr = errors.E(err, "sort")
		}
		if readErr == nil {
			log.Printf("tssdedup: sorted %d records", s.Len())
			readErr = s.Scan(emit)
		} else {
			s.Discard()
		}
	}
	if readErr == nil {
		readErr = p.push(clusterer.Flush())
	}
	err = p.finish(readErr)
	if e := closeOutput(); err == nil && e != nil {
		err = errors.E(e, "close output", opts.Output)
	}
	if err != nil {
		return nil, err
	}
	log.Printf("tssdedup: %d records read, %d filtered, %d clusters written, %d duplicates collapsed",
		metrics.RecordsRead, metrics.RecordsFiltered, metrics.Clusters, metrics.DuplicatesCollapsed())
	if opts.MetricsFile != "" {
		if err = writeMetrics(ctx, opts, metrics); err != nil {
			return nil, err
		}
	}
	return metrics, nil
}
