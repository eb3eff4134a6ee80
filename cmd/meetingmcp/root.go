// Package meetingmcp wires the CLI: the long-running server plus the
// operational commands around it.
package meetingmcp

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "meetingmcp",
	Short: "meetingmcp - a meeting-intelligence orchestration server",
	Long:  "meetingmcp hosts the meeting tool suite (transcript preprocessing, summarization, Jira, risk detection, calendar, notifications) behind an orchestrating HTTP gateway with an A2A surface for other agents.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.meetingmcp/meetingmcp.toml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(orchestrateCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of meetingmcp",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("meetingmcp v%s\n", version)
	},
}
