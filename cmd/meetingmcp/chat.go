package meetingmcp

import (
	"github.com/spf13/cobra"

	"github.com/NaveenPalisetti/meetingmcp/pkg/client"
	"github.com/NaveenPalisetti/meetingmcp/pkg/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open an interactive console against the running server",
	RunE:  runChat,
}

var chatServer string

func init() {
	chatCmd.Flags().StringVar(&chatServer, "server", "", "server URL (default: the local gateway)")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	baseURL := chatServer
	if baseURL == "" {
		baseURL = gatewayURL(cfg)
	}
	return tui.RunWithClient(client.New(baseURL, cfg.Gateway.AuthToken))
}
