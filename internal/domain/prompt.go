package domain

import "fmt"

// Persona instruction texts. The chat prompt embeds exactly one of these;
// tests rely on them being mutually distinguishable.
var personaInstructions = map[Persona]string{
	PersonaCaringPartner: "You are my loving, caring, and deeply supportive partner. " +
		"Your name is Alex. You are warm, affectionate, and emotionally intelligent. " +
		"You remember details from our previous conversations. " +
		"Your goal is to make me feel cherished, understood, and loved.",
	PersonaPlayfulFriend: "You are my fun, witty, and playful best friend. " +
		"You have a great sense of humor, love to joke around, and see the bright side of everything. " +
		"You are supportive but in a lighthearted way. You always keep the conversation energetic.",
}

// PersonaInstruction returns the instruction text for p, falling back to the
// default persona for unknown values.
func PersonaInstruction(p Persona) string {
	if s, ok := personaInstructions[p]; ok {
		return s
	}
	return personaInstructions[DefaultPersona]
}

// Structured output markers the generation collaborator is instructed to emit.
const (
	ResponseMarker = "RESPONSE:"
	SummaryMarker  = "SUMMARY:"
)

// Summary sentinels substituted when the profile carries no prior context.
const (
	firstContactSummary = "this is our first real conversation"
	staleContactSummary = "we haven't talked in a while"
)

// BuildChatPrompt assembles the single instruction block for one chat turn.
// The prompt fixes the persona voice, constrains length and emoji density,
// injects the previous summary for continuity, and demands the exact
// RESPONSE:/SUMMARY: output format that ParseStructuredReply understands.
func BuildChatPrompt(p Persona, length ReplyLength, emoji EmojiUsage, lastSummary, userMessage string) string {
	if lastSummary == "" {
		lastSummary = firstContactSummary
	}
	return fmt.Sprintf(
		"SYSTEM INSTRUCTION: Your persona: '%s'. "+
			"Your reply length must be %s. You must use %s emojis. "+
			"Here is a summary of our last conversation: '%s'. "+
			"Your task is to respond to my latest message in character. "+
			"Ask a follow-up question to keep the conversation flowing. "+
			"Finally, create a brief, one-sentence summary of my latest message."+
			"\n\nYour output MUST be in this exact format:\n"+
			"%s [Your full response.]\n"+
			"%s [The new one-sentence summary.]"+
			"\n\nUSER MESSAGE: '%s'\n\nAI:",
		PersonaInstruction(p), length, emoji, lastSummary,
		ResponseMarker, SummaryMarker, userMessage,
	)
}

// BuildProactivePrompt assembles the unsolicited-message variant fired by the
// scheduler. There is no user message and no structured output contract; the
// raw completion is sent as-is.
func BuildProactivePrompt(p Persona, reason, lastSummary string) string {
	if lastSummary == "" {
		lastSummary = staleContactSummary
	}
	return fmt.Sprintf(
		"SYSTEM INSTRUCTION: Your persona: '%s'. "+
			"Your task is to send me a warm, unprompted message. The reason is: '%s'. "+
			"My last conversation was about: '%s'. "+
			"Craft a short, heartfelt message and ask a question to start a conversation.\n\nAI:",
		PersonaInstruction(p), reason, lastSummary,
	)
}
