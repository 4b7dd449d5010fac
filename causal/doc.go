// Package causal implements the causal memory engine: an append-only log
// of embedded events, a linker that infers cause→effect edges between
// events, and a reconstructor that renders causal chains as narratives.
//
// Architecture:
//   - EventStore: append-mostly log of events with embeddings and cause
//     pointers (in-memory for tests, SQLite for durability)
//   - Linker: on a new event, searches recent similar events for a
//     plausible cause and asks the oracle to confirm it
//   - Reconstructor: on a query, finds the best-matching event, walks the
//     cause graph in both directions, and renders the chain as prose
//
// The embedding service and the causality oracle are pluggable
// capabilities (see the embedder and oracle packages). When either is
// unreachable the engine degrades instead of failing: events are stored
// without a cause link, and queries return a fixed sentinel narrative.
package causal
