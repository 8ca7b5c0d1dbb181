package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mineclover/claude-code-spec-sub003/internal/cli"
	"github.com/mineclover/claude-code-spec-sub003/internal/control"
)

func runStatus() error {
	client, err := getClient()
	if err != nil {
		return fmt.Errorf("daemon not running? %w", err)
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		return err
	}

	fmt.Printf("%s  uptime %s\n", cli.Bolden("ccsd"), status.Uptime)
	fmt.Printf("  running:  %d / %d\n", status.Running, status.MaxConcurrent)
	fmt.Printf("  tracked:  %d\n", status.Tracked)
	return nil
}

func runStart(query, project, sessionID, model string, follow bool) error {
	client, err := getClient()
	if err != nil {
		return fmt.Errorf("daemon not running? %w", err)
	}
	defer client.Close()

	info, err := client.StartExecution(control.StartRequest{
		SessionID:   sessionID,
		ProjectPath: project,
		Query:       query,
		Model:       model,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s %s (pid %d)\n", cli.GreenText("started"), info.SessionID, info.PID)

	if follow {
		return followExecution(client, info.SessionID)
	}
	return nil
}

// followExecution prints stream events for one session until it completes.
func followExecution(client *control.Client, sessionID string) error {
	for event := range client.Events() {
		switch event.Type {
		case control.EventExecutionStream:
			payload, ok := event.Payload.(map[string]any)
			if !ok {
				continue
			}
			if payload["session_id"] != sessionID {
				continue
			}
			if text, _ := payload["text"].(string); text != "" {
				fmt.Println(text)
			}

		case control.EventExecutionCompleted:
			payload, ok := event.Payload.(map[string]any)
			if !ok || payload["session_id"] != sessionID {
				continue
			}
			status, _ := payload["status"].(string)
			fmt.Printf("%s %s\n", cli.Styled(status, cli.StatusColor(status)), sessionID)
			return nil

		case control.EventExecutionError:
			payload, ok := event.Payload.(map[string]any)
			if !ok || payload["session_id"] != sessionID {
				continue
			}
			if msg, _ := payload["error"].(string); msg != "" {
				fmt.Fprintln(os.Stderr, cli.RedText(msg))
			}
		}
	}
	return fmt.Errorf("connection to daemon lost")
}

func runList(limit int) error {
	client, err := getClient()
	if err != nil {
		return fmt.Errorf("daemon not running? %w", err)
	}
	defer client.Close()

	execs, err := client.ListExecutions(limit)
	if err != nil {
		return err
	}
	if len(execs) == 0 {
		fmt.Println(cli.Dimmed("no executions"))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTATUS\tPID\tEVENTS\tPROJECT\tSTARTED")
	for _, e := range execs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			e.SessionID,
			cli.Styled(e.Status, cli.StatusColor(e.Status)),
			e.PID,
			e.EventCount,
			e.ProjectPath,
			e.StartedAt,
		)
	}
	return w.Flush()
}

func runKill(sessionID string) error {
	client, err := getClient()
	if err != nil {
		return fmt.Errorf("daemon not running? %w", err)
	}
	defer client.Close()

	if err := client.KillExecution(sessionID); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", cli.YellowText("kill signal sent"), sessionID)
	return nil
}

func runCleanup(sessionID string) error {
	client, err := getClient()
	if err != nil {
		return fmt.Errorf("daemon not running? %w", err)
	}
	defer client.Close()

	if err := client.CleanupExecution(sessionID); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", cli.GrayText("removed"), sessionID)
	return nil
}

func runGet(sessionID string) error {
	client, err := getClient()
	if err != nil {
		return fmt.Errorf("daemon not running? %w", err)
	}
	defer client.Close()

	e, err := client.GetExecution(sessionID)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", cli.Bolden(e.SessionID), cli.Styled(e.Status, cli.StatusColor(e.Status)))
	fmt.Printf("  project:  %s\n", e.ProjectPath)
	fmt.Printf("  query:    %s\n", e.Query)
	if e.PID != 0 {
		fmt.Printf("  pid:      %d\n", e.PID)
	}
	fmt.Printf("  events:   %d\n", e.EventCount)
	fmt.Printf("  started:  %s\n", e.StartedAt)
	if e.EndedAt != "" {
		fmt.Printf("  ended:    %s (exit %d)\n", e.EndedAt, e.ExitCode)
	}
	return nil
}

func runLog(sessionID, project string, questions bool, policy string) error {
	client, err := getClient()
	if err != nil {
		return fmt.Errorf("daemon not running? %w", err)
	}
	defer client.Close()

	var entries []control.LogEntryInfo
	if questions {
		entries, err = client.LogQuestions(project, sessionID, policy)
	} else {
		entries, err = client.ReadLog(project, sessionID)
	}
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println(cli.Dimmed("no entries"))
		return nil
	}

	for _, e := range entries {
		role := e.Role
		if role == "" {
			role = e.Type
		}
		fmt.Printf("%s %s\n", cli.CyanText(role+":"), e.Content)
	}
	return nil
}
