package tssdedup

import (
	"context"
	"os"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/umicount/encoding/bed12"
	"github.com/grailbio/umicount/interval"
	"github.com/grailbio/umicount/umi"
)

// listInputs returns opts.Inputs followed by the sorted files of
// opts.InputDir.
func listInputs(ctx context.Context, opts *Opts) ([]string, error) {
	paths := append([]string(nil), opts.Inputs...)
	if opts.InputDir == "" {
		return paths, nil
	}
	var dirPaths []string
	lister := file.List(ctx, opts.InputDir, false)
	for lister.Scan() {
		if !lister.IsDir() {
			dirPaths = append(dirPaths, lister.Path())
		}
	}
	if err := lister.Err(); err != nil {
		return nil, errors.E(err, "list input directory", opts.InputDir)
	}
	if len(dirPaths) == 0 {
		log.Error.Printf("input directory %s contains no files", opts.InputDir)
	}
	sort.Strings(dirPaths)
	return append(paths, dirPaths...), nil
}

// scanInputs calls fn on every record of every path, in order.
func scanInputs(ctx context.Context, paths []string, fn func(rec *bed12.Record) error) error {
	for _, path := range paths {
		log.Debug.Printf("reading %s", path)
		if path == "-" {
			sc := bed12.NewScanner(os.Stdin, "(stdin)")
			var rec bed12.Record
			for sc.Scan(&rec) {
				if err := fn(&rec); err != nil {
					return err
				}
			}
			if err := sc.Err(); err != nil {
				return err
			}
			continue
		}
		if err := bed12.Scan(ctx, path, fn); err != nil {
			return err
		}
	}
	return nil
}

// targetFilter keeps records whose TSS base is covered by every union.
type targetFilter struct {
	unions []*interval.BEDUnion
}

func newTargetFilter(ctx context.Context, opts *Opts) (*targetFilter, error) {
	f := &targetFilter{}
	if opts.TargetsBED != "" {
		u, err := interval.NewBEDUnionFromPath(ctx, opts.TargetsBED, interval.NewBEDOpts{})
		if err != nil {
			return nil, errors.E(err, "load targets", opts.TargetsBED)
		}
		f.unions = append(f.unions, &u)
	}
	if len(opts.Regions) > 0 {
		entries := make([]interval.Entry, len(opts.Regions))
		for i, region := range opts.Regions {
			var err error
			if entries[i], err = interval.ParseRegionString(region); err != nil {
				return nil, errors.E(err, "parse region", region)
			}
		}
		u, err := interval.NewBEDUnionFromEntries(entries, interval.NewBEDOpts{})
		if err != nil {
			return nil, err
		}
		f.unions = append(f.unions, &u)
	}
	if len(f.unions) == 0 {
		return nil, nil
	}
	return f, nil
}

func (f *targetFilter) keep(rec *bed12.Record) bool {
	tss := rec.TSSBase()
	for _, u := range f.unions {
		if !u.Contains(rec.Chrom, tss) {
			return false
		}
	}
	return true
}

// correctBarcode snaps the BC tag of rec to a known barcode.  It reports
// whether the name was changed.  Records without a BC tag are left alone; the
// clusterer reports them.
func correctBarcode(c *umi.SnapCorrector, rec *bed12.Record) (bool, error) {
	tags, err := bed12.ParseTags(rec.Name)
	if err != nil {
		return false, err
	}
	bc, ok := tags.Get(bed12.BarcodeTag)
	if !ok {
		return false, nil
	}
	corrected, _, snapped := c.CorrectUMI(bc)
	if !snapped {
		return false, nil
	}
	rec.Name = tags.Set(bed12.BarcodeTag, corrected).String()
	return true, nil
}
