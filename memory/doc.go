// Package memory implements the per-agent memory store: a bounded
// short-term window of recent activity with overflow promotion into an
// append-only long-term list, plus simple substring recall. It is a naive
// process-local implementation suitable for the in-memory engine; swap in a
// semantic index for production retrieval.
package memory
