package meetingmcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NaveenPalisetti/meetingmcp/pkg/client"
	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

var orchestrateCmd = &cobra.Command{
	Use:   "orchestrate <prompt>",
	Short: "Run one orchestration and print the outcome as JSON",
	Long: `Run one orchestration against a running meetingmcp server, or in-process
with --local when no server is up.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOrchestrate,
}

var (
	orchestrateParams  string
	orchestrateSession string
	orchestrateServer  string
	orchestrateLocal   bool
)

func init() {
	orchestrateCmd.Flags().StringVar(&orchestrateParams, "params", "", "tool parameters as a JSON object")
	orchestrateCmd.Flags().StringVar(&orchestrateSession, "session", "", "existing session ID to run under")
	orchestrateCmd.Flags().StringVar(&orchestrateServer, "server", "", "server URL (default: the local gateway)")
	orchestrateCmd.Flags().BoolVar(&orchestrateLocal, "local", false, "run in-process instead of against a server")
}

func runOrchestrate(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	params := mcp.Params{}
	if orchestrateParams != "" {
		if err := json.Unmarshal([]byte(orchestrateParams), &params); err != nil {
			return fmt.Errorf("invalid --params JSON: %w", err)
		}
	}

	if orchestrateLocal {
		return orchestrateInProcess(cmd.Context(), prompt, params)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	baseURL := orchestrateServer
	if baseURL == "" {
		baseURL = gatewayURL(cfg)
	}

	c := client.New(baseURL, cfg.Gateway.AuthToken)
	outcome := c.Orchestrate(context.Background(), prompt, params, orchestrateSession)
	return printJSON(outcome)
}

// orchestrateInProcess builds the full tool host locally so prompts work
// without a running gateway.
func orchestrateInProcess(ctx context.Context, prompt string, params mcp.Params) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := telemetry.SetupLogger("error", cfg.Log.Format, os.Stderr)
	ctx = telemetry.WithLogger(ctx, logger)

	rt, cleanup, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	outcome := rt.orch.Orchestrate(ctx, prompt, params, orchestrateSession)
	return printJSON(outcome)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding outcome: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
