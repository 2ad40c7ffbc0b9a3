package chat

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var conversationTmpl = template.Must(template.New("conversation").Parse(`You are Yang Chatting-an, a business creator assistant. Your role is to help users define their projects and talent requirements in detail.

When users describe their project, engage in a conversation to gather all necessary details. Ask relevant questions to fill in any missing information.

For each user message:
1. If it's a new project description or additional information:
   - Analyze the information provided
   - Ask specific questions about missing required fields from the schema
   - Focus on one or two missing fields at a time to keep the conversation natural
   - Provide suggestions based on the information given

2. Only when the user explicitly confirms that the details are complete:
   - Generate a complete JSON response following the schema
   - For any missing information, analyze the conversation history and make intelligent assumptions based on:
     * Project context and domain
     * Industry standards and best practices
     * Similar projects discussed
     * User's preferences and constraints mentioned
   - Generate appropriate values for technical fields:
     * Create UUIDs for IDs
     * Generate slugs from titles
     * Set current timestamps for dates
     * Calculate reasonable budgets based on project scope
     * Determine appropriate durations based on complexity
     * Set status fields based on project context
   - Ensure all generated data is coherent and consistent with the project's nature

Remember to:
- Keep responses focused on the current question or topic
- Don't repeat previous conversation history
- Be concise but thorough in gathering information
- Use Indonesian language for responses
- Do not emit the final JSON record before the user confirms
- Ensure all generated data is realistic and contextually appropriate

Current conversation context:
{{.History}}

user: {{.Input}}`))

var repairTmpl = template.Must(template.New("repair").Parse(`Based on our conversation about the project, generate a complete JSON response following this schema. Include all required fields and make intelligent assumptions for any missing information:

{{.Schema}}

Remember to:
1. Generate UUIDs for IDs
2. Create slugs from titles
3. Use ISO format for dates
4. Make realistic assumptions based on the project context
5. Ensure all required fields are included
6. Keep the data coherent and consistent

Output ONLY the JSON object. No markdown fences. No explanation text outside the JSON.

Previous conversation:
{{.History}}`))

// Prompter composes the payloads sent to the generation backend. It is a
// pure renderer over the inputs it is given and never mutates memory.
type Prompter struct{}

// Conversation renders the persona instruction block, the serialized session
// history and the new user turn into one prompt.
func (Prompter) Conversation(history []Turn, input string) (string, error) {
	data := struct {
		History string
		Input   string
	}{
		History: renderHistory(history),
		Input:   input,
	}

	var buf bytes.Buffer
	if err := conversationTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render conversation prompt: %w", err)
	}
	return buf.String(), nil
}

// Repair renders the stricter escalation prompt that reiterates the full
// schema document alongside the serialized conversation.
func (Prompter) Repair(schemaJSON string, history []Turn) (string, error) {
	data := struct {
		Schema  string
		History string
	}{
		Schema:  schemaJSON,
		History: renderHistory(history),
	}

	var buf bytes.Buffer
	if err := repairTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render repair prompt: %w", err)
	}
	return buf.String(), nil
}

// renderHistory serializes turns as "role: text" lines.
func renderHistory(turns []Turn) string {
	if len(turns) == 0 {
		return "(no previous messages)"
	}
	var sb strings.Builder
	for _, turn := range turns {
		sb.WriteString(string(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Text)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
