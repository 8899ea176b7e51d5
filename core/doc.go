// Package core defines the shared data model for fan-in aggregation: the
// opaque message records workers produce, the tagged input union accepted by
// the aggregator, the merged message handed to the aggregator worker, and the
// error types surfaced at the boundary of the library.
//
// The package is intentionally free of I/O and of dependencies on the rest of
// the module so that every other package can import it.
package core
