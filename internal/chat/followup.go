package chat

import "strings"

// Phrases that indicate the user is asking about a previously served
// solution rather than reporting a new problem.
var followupKeywords = []string{
	"don't understand", "don't get", "confused", "unclear",
	"step", "how to", "what does", "explain", "clarify",
	"not working", "doesn't work", "still have", "still experiencing",
	"help", "assist", "guide", "walk me through",
	"this didn't work", "this solution didn't work", "it's not working",
	"tried this", "already tried", "still not working", "doesn't help",
	"not helping", "still have the problem", "problem persists",
}

var negativeWords = []string{"not", "didn't", "doesn't", "still", "this", "that"}

// isFollowupQuestion reports whether the question refers back to the
// session's previous solution. Without a stored solution there is nothing
// to follow up on.
func isFollowupQuestion(question string, s *Session) bool {
	if s.Solution == "" {
		return false
	}

	lower := strings.ToLower(question)

	for _, kw := range followupKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	// Very short questions with negative words are likely follow-ups.
	if len(strings.Fields(question)) <= 5 {
		for _, w := range negativeWords {
			if strings.Contains(lower, w) {
				return true
			}
		}
	}

	return false
}
