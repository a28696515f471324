// ABOUTME: Outbound message formatting for agent-authored and closing messages
// ABOUTME: Uses Telegram Markdown markers so the user can tell the agent apart

package conversation

import "fmt"

// DefaultLabel is the agent name shown in front of every outbound message.
const DefaultLabel = "Agent"

const closingSuffix = "\n\n_Conversation ended._"

func formatAgent(label, text string) string {
	return fmt.Sprintf("🤖 *%s:*\n%s", label, text)
}

func formatClosing(label, text string) string {
	return formatAgent(label, text) + closingSuffix
}

// truncate shortens s to at most n runes for log output.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
