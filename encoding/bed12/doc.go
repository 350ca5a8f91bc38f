/*Package bed12 reads and writes 12-column BED records, the interval format
  used for spliced reads: an outer span plus a list of exonic blocks given as
  sizes and starts relative to the span start.

    chrom start end name score strand thickStart thickEnd itemRgb blockCount blockSizes blockStarts

  Besides the codec, the package provides the accessors used for
  deduplication: the transcription start site of a record (start on the plus
  strand, end on the minus strand), the absolute coordinates of its blocks,
  and the barcode (BC) and fingerprint (FP) tags embedded in the name column
  as semicolon-separated KEY:value pairs, e.g. "BC:ATGC;FP:0012".
*/
package bed12
