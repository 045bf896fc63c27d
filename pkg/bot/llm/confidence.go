package llm

import "strings"

// hedgingPhrase marks an answer as unreliable. The substring check is a
// deliberately crude heuristic, kept for behavioral compatibility; it is
// not a semantic judgment of the answer.
const hedgingPhrase = "I don't know"

// LowConfidence reports whether a completion result should be escalated
// to a human operator instead of returned to the requester: a failed
// call, or an answer containing the fixed hedging phrase.
func LowConfidence(answer string, err error) bool {
	if err != nil {
		return true
	}
	return strings.Contains(answer, hedgingPhrase)
}
