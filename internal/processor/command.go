package processor

import (
	"context"
	"strings"

	"github.com/shaharia-lab/mc-webhooks/internal/app"
	"github.com/shaharia-lab/mc-webhooks/internal/event"
	"github.com/shaharia-lab/mc-webhooks/internal/notification"
)

const (
	TagPlayerCommand     = "player_command"
	ChannelPlayerCommand = "events:player_command"
)

// CommandMessage is published for every command a player runs.
type CommandMessage struct {
	Player  string `json:"player"`
	Command string `json:"command"`
}

type command struct{}

// NewCommand returns the processor for player commands.
func NewCommand() Processor { return command{} }

func (command) Name() string { return "command" }

func (command) ReactsTo() []string { return []string{TagPlayerCommand} }

func (command) Process(ctx context.Context, ev *event.Event, svc *app.Services) error {
	msg := CommandMessage{
		Player:  ev.String("player", "Unknown"),
		Command: ev.String("command", ""),
	}

	embed := notification.Embed{
		Author:      msg.Player + " | Command",
		Description: "`" + strings.ReplaceAll(msg.Command, "`", "'") + "`",
		Timestamp:   ev.ReceivedAt(),
	}
	if err := notifyAndPublish(ctx, svc, embed, ChannelPlayerCommand, msg); err != nil {
		return err
	}

	svc.Logger().Debug("processed command event", "player", msg.Player, "command", msg.Command)
	return nil
}
