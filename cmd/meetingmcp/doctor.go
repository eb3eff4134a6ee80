package meetingmcp

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	goruntime "runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/NaveenPalisetti/meetingmcp/pkg/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose issues with the meetingmcp installation",
	RunE:  runDoctor,
}

type checkResult struct {
	name   string
	ok     bool
	detail string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Printf("meetingmcp doctor v%s\n", version)
	fmt.Printf("Platform: %s/%s\n", goruntime.GOOS, goruntime.GOARCH)
	fmt.Printf("Go: %s\n\n", goruntime.Version())

	checks := []checkResult{
		checkDataDir(),
		checkConfig(),
		checkDatabase(),
		checkSummarizerKey(),
		checkMasterKey(),
		checkJira(),
		checkSinks(),
		checkGatewayHealth(),
	}

	passed, failed := 0, 0
	for _, c := range checks {
		status := "✓"
		if !c.ok {
			status = "✗"
			failed++
		} else {
			passed++
		}
		fmt.Printf("  %s %s: %s\n", status, c.name, c.detail)
	}

	fmt.Printf("\n%d passed, %d failed\n", passed, failed)

	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}

func checkDataDir() checkResult {
	dir := config.DataDir()
	info, err := os.Stat(dir)
	if err != nil {
		return checkResult{"Data directory", false, fmt.Sprintf("%s does not exist", dir)}
	}
	if !info.IsDir() {
		return checkResult{"Data directory", false, fmt.Sprintf("%s is not a directory", dir)}
	}
	return checkResult{"Data directory", true, dir}
}

func checkConfig() checkResult {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err != nil {
		return checkResult{"Config file", false, fmt.Sprintf("%s not found (using defaults)", path)}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return checkResult{"Config file", false, fmt.Sprintf("parse error: %s", err)}
	}
	return checkResult{"Config file", true, fmt.Sprintf("%s (port %d)", path, cfg.Gateway.Port)}
}

func checkDatabase() checkResult {
	cfg := config.Current()
	dsn := cfg.Store.DSN
	if dsn == "" {
		dsn = filepath.Join(config.DataDir(), "meetingmcp.db")
	}
	info, err := os.Stat(dsn)
	if err != nil {
		return checkResult{"Database", false, fmt.Sprintf("%s not found (will be created on first start)", dsn)}
	}
	return checkResult{"Database", true, fmt.Sprintf("%s (%d KB)", dsn, info.Size()/1024)}
}

func checkSummarizerKey() checkResult {
	cfg := config.Current()
	env := cfg.Summarizer.APIKeyEnv
	if env == "" {
		return checkResult{"Summarizer API key", false, "api_key_env not configured (extractive fallback only)"}
	}
	key := os.Getenv(env)
	if key == "" {
		return checkResult{"Summarizer API key", false, fmt.Sprintf("%s not set (extractive fallback only)", env)}
	}
	return checkResult{"Summarizer API key", true, fmt.Sprintf("%s set (%d chars)", env, len(key))}
}

func checkMasterKey() checkResult {
	cfg := config.Current()
	env := masterKeyEnv(cfg)
	if os.Getenv(env) == "" {
		return checkResult{"Credential master key", false, fmt.Sprintf("%s not set (credential store locked)", env)}
	}
	return checkResult{"Credential master key", true, fmt.Sprintf("%s set", env)}
}

func checkJira() checkResult {
	cfg := config.Current()
	if cfg.Jira.BaseURL == "" {
		return checkResult{"Jira", false, "base_url not configured (optional)"}
	}
	if cfg.Jira.TokenEnv != "" && os.Getenv(cfg.Jira.TokenEnv) == "" {
		return checkResult{"Jira", false, fmt.Sprintf("%s not set", cfg.Jira.TokenEnv)}
	}
	return checkResult{"Jira", true, fmt.Sprintf("%s project %s", cfg.Jira.BaseURL, cfg.Jira.Project)}
}

func checkSinks() checkResult {
	cfg := config.Current()
	if len(cfg.Notify) == 0 {
		return checkResult{"Notification sinks", false, "none configured (optional)"}
	}
	return checkResult{"Notification sinks", true, fmt.Sprintf("%d configured", len(cfg.Notify))}
}

func checkGatewayHealth() checkResult {
	cfg := config.Current()
	url := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Gateway.Port)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return checkResult{"Gateway", false, "not running"}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return checkResult{"Gateway", true, fmt.Sprintf("running at :%d", cfg.Gateway.Port)}
	}
	return checkResult{"Gateway", false, fmt.Sprintf("unhealthy (status %d)", resp.StatusCode)}
}
