// Package memory provides the low-level allocation primitives used on
// the matching path: a typed object pool for order reuse and a
// lock-free SPSC ring for handing trades off to the journal writer
// without blocking the matcher.
package memory
