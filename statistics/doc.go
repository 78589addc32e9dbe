// Package statistics computes per-chunk column statistics (null count,
// minimum and maximum) and assembles them into an Arrow record with one row
// per chunk, used to prune chunks when reading a fragment.
package statistics
