// Command ccs is the CLI for the claude-code-spec daemon. It talks to ccsd
// over the control socket: start and manage executions, follow their stream
// output, and inspect session transcripts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mineclover/claude-code-spec-sub003/internal/config"
	"github.com/mineclover/claude-code-spec-sub003/internal/control"
)

var cfg *config.Config

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getClient() (*control.Client, error) {
	return control.NewClient(cfg.Daemon.Socket)
}

var rootCmd = &cobra.Command{
	Use:   "ccs",
	Short: "Manage Claude Code executions",
	Long: `ccs - CLI for the ccsd execution daemon.

Executions are tracked by session id. ccsd spawns the claude CLI with
stream-json output, classifies its events, and records the history in
SQLite. Session transcripts written by the CLI itself can be read and
filtered into genuine user questions.

Examples:
  ccs run "Fix the failing test" --project ~/code/demo
  ccs ps                                # List tracked executions
  ccs kill <session-id>                 # Signal a running execution
  ccs cleanup <session-id>              # Drop a finished execution
  ccs log <session-id> --project ~/code/demo
  ccs log <session-id> --project ~/code/demo --questions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

var runCmd = &cobra.Command{
	Use:   "run <query>",
	Short: "Start a new execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")
		sessionID, _ := cmd.Flags().GetString("session")
		model, _ := cmd.Flags().GetString("model")
		follow, _ := cmd.Flags().GetBool("follow")
		return runStart(args[0], project, sessionID, model, follow)
	},
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List tracked executions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return runList(limit)
	},
}

var killCmd = &cobra.Command{
	Use:   "kill <session-id>",
	Short: "Send the termination signal to a running execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKill(args[0])
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <session-id>",
	Short: "Remove a finished execution's record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCleanup(args[0])
	},
}

var getCmd = &cobra.Command{
	Use:   "get <session-id>",
	Short: "Show one execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGet(args[0])
	},
}

var logCmd = &cobra.Command{
	Use:   "log <session-id>",
	Short: "Read a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")
		questions, _ := cmd.Flags().GetBool("questions")
		policy, _ := cmd.Flags().GetString("policy")
		return runLog(args[0], project, questions, policy)
	},
}

func init() {
	runCmd.Flags().StringP("project", "p", "", "Project path (required)")
	runCmd.Flags().StringP("session", "s", "", "Session id (generated if empty)")
	runCmd.Flags().StringP("model", "m", "", "Model override")
	runCmd.Flags().BoolP("follow", "f", false, "Stream events until the execution finishes")
	runCmd.MarkFlagRequired("project")

	psCmd.Flags().IntP("limit", "n", 0, "Limit the number of executions shown")

	logCmd.Flags().StringP("project", "p", "", "Project path (required)")
	logCmd.Flags().BoolP("questions", "q", false, "Only show filtered user questions")
	logCmd.Flags().String("policy", "", "Question filter policy: strict or inclusive")
	logCmd.MarkFlagRequired("project")

	rootCmd.AddCommand(runCmd, psCmd, killCmd, cleanupCmd, getCmd, logCmd)
}
