// Package orderbook holds the deterministic core of the engine: the
// price-time priority book for a single instrument and the matcher
// that mutates it.
//
// Nothing here is safe for concurrent use, on purpose. The book has
// exactly one owner, the matcher, and the matcher is driven by one
// consumer of the ingestion channel. Serialization lives a layer up;
// keeping locks out of this package keeps the matching path free of
// contention and makes replay bit-for-bit reproducible.
package orderbook
