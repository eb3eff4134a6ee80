package notify

import (
	"context"
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"
)

// DiscordSink sends digests to one Discord channel over the REST API; no
// gateway connection is opened.
type DiscordSink struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordSink(token, channelID string) (*DiscordSink, error) {
	if token == "" {
		token = os.Getenv("DISCORD_BOT_TOKEN")
	}
	if channelID == "" {
		channelID = os.Getenv("DISCORD_CHANNEL_ID")
	}
	if token == "" || channelID == "" {
		return nil, fmt.Errorf("discord: bot token and channel id required (set DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID)")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: creating session: %w", err)
	}
	return &DiscordSink{session: dg, channelID: channelID}, nil
}

func (s *DiscordSink) Name() string { return "discord" }

func (s *DiscordSink) Send(_ context.Context, n Notification) error {
	for _, chunk := range SplitMessage(n.Render(), discordMaxMessageLen) {
		if _, err := s.session.ChannelMessageSend(s.channelID, chunk); err != nil {
			return fmt.Errorf("discord: sending message: %w", err)
		}
	}
	return nil
}
