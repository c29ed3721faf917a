// Package scout defines the core types and interfaces shared across the
// crawl-and-enrich pipeline: entity records, run metadata, candidate
// references, and the contracts implemented by sessions, stores, and
// publishers.
package scout
