/*Package interval implements interval-union operations on genomic
  coordinates.

  Merge and MergeBlocks collapse the blocks of a group of reads into the
  minimal sorted set of disjoint intervals covering them; touching intervals
  are merged.  BEDUnion loads a BED file (or a list of region strings) into a
  per-chromosome interval union that can be queried position by position.

  It assumes every position fits in a PosType, which is currently defined as
  int32.
*/
package interval
