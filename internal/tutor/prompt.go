package tutor

import (
	"fmt"
	"strings"
)

// SystemPrompt sets up the model as a patient school tutor.
const SystemPrompt = `You are an expert AI tutor for school students in India. Your role is to help students understand concepts clearly through step-by-step explanations.

Guidelines:
1. Provide clear, age-appropriate explanations based on the student's grade level
2. Break down complex topics into simple, digestible steps
3. Use examples and analogies that students can relate to
4. Encourage critical thinking by asking guiding questions
5. Be patient, supportive, and encouraging
6. Align with Indian curriculum standards (CBSE/State boards)
7. Use proper academic terminology while keeping explanations accessible
8. If a student is struggling, offer alternative explanations or approaches
9. Keep responses focused and concise (300-500 words)

Response format:
- Start with a brief acknowledgment of the question
- Provide a clear, structured explanation
- Include relevant examples
- End with a summary or key takeaway
- Optionally suggest related topics to explore

Your goal is to help students learn and understand, not just provide answers.`

// MaxAttachmentRunes bounds the attachment text copied into a prompt.
const MaxAttachmentRunes = 10000

// DefaultTopic is used when the student leaves the topic empty.
const DefaultTopic = "General"

// Attachment is document text the student supplied with a question.
type Attachment struct {
	Name string
	Text string
}

// context renders the attachment for the prompt, or "" when it has no text.
func (a Attachment) context() string {
	text := strings.TrimSpace(a.Text)
	if text == "" {
		return ""
	}
	if r := []rune(text); len(r) > MaxAttachmentRunes {
		text = string(r[:MaxAttachmentRunes]) + "\n[truncated]"
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = "attachment"
	}
	return fmt.Sprintf("Reference material from %q:\n%s", name, text)
}

// BuildUserPrompt renders p as the user message.
func BuildUserPrompt(p Params) string {
	topic := strings.TrimSpace(p.Topic)
	if topic == "" {
		topic = DefaultTopic
	}

	var b strings.Builder
	b.WriteString("Student Context:\n")
	fmt.Fprintf(&b, "- Grade/Class: %d\n", p.Grade)
	fmt.Fprintf(&b, "- Subject: %s\n", strings.TrimSpace(p.Subject))
	fmt.Fprintf(&b, "- Topic: %s\n\n", topic)
	b.WriteString("Student Question:\n")
	b.WriteString(strings.TrimSpace(p.Question))

	if ctx := p.Attachment.context(); ctx != "" {
		b.WriteString("\n\n")
		b.WriteString(ctx)
	}

	b.WriteString("\n\nPlease provide a clear, step-by-step explanation that helps the student understand this concept thoroughly.")

	if lang := p.Language; lang != "" && lang != DefaultLanguage {
		fmt.Fprintf(&b, "\n\nRespond in: %s", promptLabel(lang))
	}
	return b.String()
}
