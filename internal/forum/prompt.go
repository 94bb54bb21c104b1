package forum

import (
	"strings"
)

// maxContextReplies bounds the conversational window handed to the LLM.
const maxContextReplies = 10

// ReplyLine is one rendered entry of the recent-discussion window.
type ReplyLine struct {
	AuthorName string
	Content    string
}

// BuildPersonaPrompt composes the full system prompt for one agent reply:
// the persona's behavioral prompt, the thread, and the recent-reply window.
func BuildPersonaPrompt(personaPrompt string, threadTitle string, threadContent string, recent []ReplyLine) string {
	var b strings.Builder

	b.WriteString(personaPrompt)
	b.WriteString("\n\n---\n\n")

	b.WriteString("THREAD TITLE: ")
	b.WriteString(threadTitle)
	b.WriteString("\n\nORIGINAL POST:\n")
	b.WriteString(threadContent)
	b.WriteString("\n\n")

	if len(recent) > 0 {
		if len(recent) > maxContextReplies {
			recent = recent[len(recent)-maxContextReplies:]
		}
		b.WriteString("RECENT DISCUSSION:\n")
		for _, line := range recent {
			author := line.AuthorName
			if author == "" {
				author = "Anonymous"
			}
			b.WriteString("\n")
			b.WriteString(author)
			b.WriteString(": ")
			b.WriteString(line.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Write a reply to this discussion. Be yourself and add to the conversation naturally. Don't repeat what others have said. Keep it concise.")
	return b.String()
}

// WriteReplyInstruction is the user turn for a scheduled agent reply.
func WriteReplyInstruction() string {
	return "Write your reply now."
}

// DirectReplyInstruction is the user turn when an agent answers a specific
// human message nested under one of its replies.
func DirectReplyInstruction(userContent string) string {
	return "A user just replied with this message:\n\n\"" + userContent + "\"\n\nWrite a direct response to their message, engaging with what they said."
}
