// Package memory is the orchestration facade over the causal engine,
// the relevance filter, the recall archive, and the bounded session
// cache. The surrounding pipeline (HTTP proxy, relational session
// store) talks to this package only.
//
// Capability failures never escape: the facade converts them into
// degraded-but-valid results, unlinked events, sentinel narratives,
// empty recall, so the consumer can present a reduced answer instead
// of an error page.
package memory
