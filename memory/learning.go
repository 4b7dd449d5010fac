package memory

import (
	"sync"
	"time"
)

// LearningState tracks how one agent behaves within a session. Every
// field has an explicit update rule in observe; adding a metric means
// adding a field and its rule here, not poking at an open-ended map.
type LearningState struct {
	InteractionCount      int
	TotalResponseWords    int
	AverageResponseWords  float64
	TopicFrequency        map[string]int
	AverageResponseTimeMs float64
	LastUpdated           time.Time
}

// observe folds one turn into the state.
func (s *LearningState) observe(words int, topics []string, responseTimeMs float64, now time.Time) {
	s.InteractionCount++
	s.TotalResponseWords += words
	s.AverageResponseWords = float64(s.TotalResponseWords) / float64(s.InteractionCount)

	if s.TopicFrequency == nil {
		s.TopicFrequency = make(map[string]int)
	}
	for _, topic := range topics {
		s.TopicFrequency[topic]++
	}

	if responseTimeMs > 0 {
		if s.AverageResponseTimeMs == 0 {
			s.AverageResponseTimeMs = responseTimeMs
		} else {
			n := float64(s.InteractionCount)
			s.AverageResponseTimeMs = (s.AverageResponseTimeMs*(n-1) + responseTimeMs) / n
		}
	}

	s.LastUpdated = now
}

// clone returns a copy safe to hand outside the lock.
func (s *LearningState) clone() LearningState {
	out := *s
	out.TopicFrequency = make(map[string]int, len(s.TopicFrequency))
	for k, v := range s.TopicFrequency {
		out.TopicFrequency[k] = v
	}
	return out
}

type learningKey struct {
	sessionID string
	agent     string
}

// learningBook holds per-(session, agent) learning states.
type learningBook struct {
	mu     sync.Mutex
	states map[learningKey]*LearningState
}

func newLearningBook() *learningBook {
	return &learningBook{states: make(map[learningKey]*LearningState)}
}

// observe updates the state for one agent turn and returns a snapshot of
// the result.
func (b *learningBook) observe(sessionID, agent string, words int, topics []string, responseTimeMs float64, now time.Time) LearningState {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := learningKey{sessionID: sessionID, agent: agent}
	state, ok := b.states[key]
	if !ok {
		state = &LearningState{}
		b.states[key] = state
	}
	state.observe(words, topics, responseTimeMs, now)
	return state.clone()
}

// get returns a snapshot of the state for one agent, if any.
func (b *learningBook) get(sessionID, agent string) (LearningState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[learningKey{sessionID: sessionID, agent: agent}]
	if !ok {
		return LearningState{}, false
	}
	return state.clone(), true
}
