package llm

import "fmt"

// ExpandQueryPrompt generates the prompt for turning one user query into
// several related search queries.
func ExpandQueryPrompt(query string) string {
	return fmt.Sprintf(`You are a search query expansion system for a personal memory store. Generate 3-5 search queries that together cover the user's question.

USER QUESTION: %s

The queries should cover:
1. Direct matches for the question's keywords
2. Background and surrounding context
3. Related preferences or past decisions
4. Needs the question implies but does not state

Rules:
- 3 to 5 queries, each a short phrase
- No numbering, no commentary
- Return ONLY a JSON array of strings

Example: ["kubernetes cluster setup", "infrastructure decisions", "deployment preferences"]`, query)
}

// AnswerPrompt generates the prompt for answering a question from retrieved
// memories and recent conversation history.
func AnswerPrompt(userContext, memories, history, question string) string {
	if userContext == "" {
		userContext = "(none)"
	}
	if memories == "" {
		memories = "(no relevant memories found)"
	}
	if history == "" {
		history = "(start of conversation)"
	}

	return fmt.Sprintf(`You are a personal memory assistant. Answer the question using the stored memories below. If the memories do not contain the answer, say so plainly instead of guessing.

WHAT YOU KNOW ABOUT THE USER:
%s

RELEVANT MEMORIES:
%s

RECENT CONVERSATION:
%s

QUESTION: %s

Answer concisely. Cite specifics from the memories where they support the answer.`, userContext, memories, history, question)
}

// ExtractFactsPrompt generates the prompt for pulling durable preferences and
// facts out of one conversation turn.
func ExtractFactsPrompt(userMessage, assistantMessage string) string {
	return fmt.Sprintf(`You are a memory extraction system. Review this conversation turn and extract durable personal knowledge worth remembering.

USER: %s
ASSISTANT: %s

Extract into these types:
- preference: likes, dislikes, habitual choices (e.g., "Prefers tea over coffee in the morning")
- fact: stable personal facts (e.g., "Works as a data engineer in Rotterdam")

Rules:
- Only extract knowledge that stays true beyond this conversation
- Skip anything session-specific, speculative, or already implied by the question
- Each content string is one self-contained sentence
- At most 3 entries; if nothing qualifies, return []
- Return ONLY a JSON array, no other text

Return a JSON array:
[{"type": "preference|fact", "content": "one sentence"}]`, userMessage, assistantMessage)
}
