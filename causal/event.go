package causal

import "time"

// Event is an immutable record of something that happened, embedded for
// semantic search. The cause-link fields are set exactly once, when the
// event is appended; events are never updated afterwards.
type Event struct {
	// ID is assigned by the store. Monotonically increasing, never reused.
	ID int64

	// Timestamp is the creation time, used for ordering and time decay.
	Timestamp time.Time

	// EffectText describes what happened.
	EffectText string

	// Embedding is the fixed-dimension vector for EffectText. All events
	// in a store share the same dimension.
	Embedding []float32

	// CauseID references an earlier event judged to have caused this one.
	// Nil for root events. A cause never postdates its effect.
	CauseID *int64

	// RelationshipText is the oracle's one-sentence explanation of the
	// cause link. Set iff CauseID is set.
	RelationshipText string

	// SessionID and ConversationID scope queries. Referential integrity
	// is owned by the external session store, not enforced here.
	SessionID      string
	ConversationID string
}
