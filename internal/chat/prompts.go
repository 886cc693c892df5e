package chat

import (
	"fmt"
	"strings"
)

// recentTurns is how much history the context prompt carries.
const recentTurns = 4

// buildConversationContext renders the session's problem, solution, and
// recent history into a prompt for contextual answers. Call with the
// session lock held.
func buildConversationContext(s *Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an IT support specialist helping with a technical issue.

Previous Problem: %s

Previous Solution Provided: %s

Current Conversation History:
`, s.Problem, s.Solution)

	history := s.History
	if len(history) > recentTurns {
		history = history[len(history)-recentTurns:]
	}
	for _, turn := range history {
		role := "Support"
		if turn.Role == RoleUser {
			role = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, turn.Content)
	}

	fmt.Fprintf(&b, `

IMPORTANT CONTEXT: The user is currently experiencing issues with: %s
You provided this solution: %s

The user is now saying the solution didn't work or they need clarification.

Please provide a helpful, contextual response that:
1. Acknowledges their current problem
2. Offers alternative solutions or troubleshooting steps
3. Asks clarifying questions if needed
4. Is supportive and understanding

Be conversational and supportive. If they're saying something isn't working, help troubleshoot further with specific steps.`, s.Problem, s.Solution)

	return b.String()
}

// contextPrompt appends the current question to a conversation context.
func contextPrompt(question, context string) string {
	return fmt.Sprintf("%s\n\nUser's current question: %s", context, question)
}

// kbRestylePrompt asks the generator to rewrite a knowledge-base
// solution as a step-by-step answer without inventing new steps.
func kbRestylePrompt(question, solution string) string {
	return fmt.Sprintf(`You are an IT support assistant.
Below is a knowledge-base solution relevant to the user's problem.
Rewrite it as a concise, friendly, step-by-step response.
- Keep only factual steps from the KB, do not invent.
- Clarify where needed.
- Prefer bullet points or short numbered steps.

User question: %s

Knowledge-base solution:
%s
`, question, solution)
}
