package processor

import (
	"context"

	"github.com/shaharia-lab/mc-webhooks/internal/app"
	"github.com/shaharia-lab/mc-webhooks/internal/event"
	"github.com/shaharia-lab/mc-webhooks/internal/notification"
)

// Presence event tags and the channels they are published on.
const (
	TagPlayerLogin = "player_login"
	TagPlayerQuit  = "player_quit"

	ChannelPlayerJoin  = "events:player_join"
	ChannelPlayerLeave = "events:player_leave"
)

// PresenceMessage is published when a player joins or leaves.
type PresenceMessage struct {
	Player string `json:"player"`
}

type presence struct{}

// NewPresence returns the processor for player join and leave events.
func NewPresence() Processor { return presence{} }

func (presence) Name() string { return "presence" }

func (presence) ReactsTo() []string { return []string{TagPlayerLogin, TagPlayerQuit} }

func (presence) Process(ctx context.Context, ev *event.Event, svc *app.Services) error {
	player := ev.String("player", "Unknown")

	action, channel := "Joined", ChannelPlayerJoin
	if ev.Type() == TagPlayerQuit {
		action, channel = "Left", ChannelPlayerLeave
	}

	embed := notification.Embed{
		Author:    player + " | " + action,
		Color:     notification.ColorBlurple,
		Timestamp: ev.ReceivedAt(),
	}
	if err := notifyAndPublish(ctx, svc, embed, channel, PresenceMessage{Player: player}); err != nil {
		return err
	}

	svc.Logger().Info("processed player join/leave event", "player", player, "action", action)
	return nil
}
