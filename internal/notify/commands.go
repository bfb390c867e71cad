package notify

import "strings"

// Replies sent back to the chat for each command.
const (
	ReplyStopping = "Stopping notifications"
	ReplyStarting = "Starting notifications"
	ReplyRunning  = "Running"
)

// Commands applies chat commands to the gate.
type Commands struct {
	gate *Gate
}

func NewCommands(gate *Gate) *Commands {
	return &Commands{gate: gate}
}

// Handle executes a "/command" message. It returns the reply and false when
// the text is not a known command.
func (c *Commands) Handle(text string) (string, bool) {
	command := strings.TrimSpace(text)
	if !strings.HasPrefix(command, "/") {
		return "", false
	}
	command = strings.TrimPrefix(command, "/")
	// Telegram appends "@botname" in group chats.
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	if space := strings.IndexAny(command, " \t\n"); space >= 0 {
		command = command[:space]
	}

	switch command {
	case "stop":
		c.gate.SetEnabled(false)
		return ReplyStopping, true
	case "start":
		c.gate.SetEnabled(true)
		return ReplyStarting, true
	case "status":
		return ReplyRunning, true
	default:
		return "", false
	}
}
