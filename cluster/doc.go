/*Package cluster partitions a TSS-ordered stream of BED12 records into groups
  of duplicates.

  Two policies are provided.  Proximity groups consecutive records on one
  chromosome whose TSSs are chained within a maximum distance of each other:
  each record is compared with the previous member, not with the first one, so
  a cluster may span more than the distance in total.  Exact groups the
  records that share one TSS by their (chromosome, barcode, fingerprint)
  identity.

  Both clusterers are push-based: Add consumes one record and returns the
  clusters that the record closed, and Flush returns whatever is still open at
  the end of the stream.  Emitted clusters own their records and are never
  touched by the clusterer again, so they may be consolidated concurrently.

  The input order is a precondition.  A TSS that moves backwards on the same
  chromosome (and strand, where strand matters) is reported as an
  *OrderingViolationError; the clusterers never re-sort.
*/
package cluster
