/*Package tssdedup collapses UMI duplicates in TSS-anchored BED12 reads.

  Reads are grouped by the cluster package, either by exact identity (same
  chromosome, strand, TSS, barcode, and fingerprint) or by chained TSS
  proximity, and every group is replaced by one consolidated record:

    - the blocks of all members are unioned, merging overlapping and touching
      blocks;
    - the span runs from the leftmost merged block to the end of the last one;
    - the score is the number of reads in the group;
    - the thick region marks the 5' block: the first block on the plus strand,
      the last block on the minus strand;
    - the name is "BC:<barcode>;FP:<fingerprint>" in exact mode and
      "chrom:start:end:strand" in proximity mode.

  Run drives the whole pipeline: it reads the inputs, optionally drops reads
  whose TSS is outside a set of target regions, snap-corrects barcodes against
  a known list, sorts the reads into TSS order with the external sorter,
  clusters them, consolidates clusters on parallel workers, and writes the
  consolidated records in cluster order.

  Example:

    opts := tssdedup.Opts{
      Mode:   tssdedup.ModeExact,
      Inputs: []string{"reads.bed.gz"},
      Output: "dedup.bed",
    }
    metrics, err := tssdedup.Run(ctx, &opts)
*/
package tssdedup
