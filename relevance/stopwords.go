package relevance

// stopWords are excluded from topic extraction and relevance scoring.
var stopWords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"was": true, "were": true, "are": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "shall": true, "this": true,
	"that": true, "these": true, "those": true, "you": true, "she": true,
	"her": true, "him": true, "its": true, "our": true, "their": true,
	"them": true, "they": true, "your": true, "his": true,
}
