package processor

import (
	"context"

	"github.com/shaharia-lab/mc-webhooks/internal/app"
	"github.com/shaharia-lab/mc-webhooks/internal/event"
	"github.com/shaharia-lab/mc-webhooks/internal/notification"
)

const (
	TagPlayerChat     = "player_chat"
	ChannelPlayerChat = "events:player_chat"
)

// ChatMessage is published for every chat line.
type ChatMessage struct {
	Player  string `json:"player"`
	Message string `json:"message"`
}

type chat struct{}

// NewChat returns the processor for in-game chat.
func NewChat() Processor { return chat{} }

func (chat) Name() string { return "chat" }

func (chat) ReactsTo() []string { return []string{TagPlayerChat} }

func (chat) Process(ctx context.Context, ev *event.Event, svc *app.Services) error {
	msg := ChatMessage{
		Player:  ev.String("player", "Unknown"),
		Message: ev.String("message", ""),
	}

	embed := notification.Embed{
		Author:      msg.Player,
		Description: msg.Message,
		Timestamp:   ev.ReceivedAt(),
	}
	if err := notifyAndPublish(ctx, svc, embed, ChannelPlayerChat, msg); err != nil {
		return err
	}

	svc.Logger().Debug("processed chat event", "player", msg.Player)
	return nil
}
