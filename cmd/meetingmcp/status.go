package meetingmcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the meetingmcp server is running",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: 3 * time.Second}
	resp, err := httpClient.Get(gatewayURL(cfg) + "/health")
	if err != nil {
		fmt.Println("status: gateway is not running")
		return nil
	}
	defer resp.Body.Close()

	var health struct {
		Ready bool `json:"ready"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil || resp.StatusCode != http.StatusOK {
		fmt.Println("status: gateway responded but looks unhealthy")
		return nil
	}
	if !health.Ready {
		fmt.Println("status: gateway is up but the tool host is not ready")
		return nil
	}
	fmt.Printf("status: gateway is healthy at %s\n", gatewayURL(cfg))
	return nil
}
