package daemon

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mineclover/claude-code-spec-sub003/internal/control"
	"github.com/mineclover/claude-code-spec-sub003/internal/sessionlog"
	"github.com/mineclover/claude-code-spec-sub003/internal/supervisor"
)

func (d *Daemon) registerHandlers() {
	d.server.Handle(control.MethodExecutionStart, d.handleExecutionStart)
	d.server.Handle(control.MethodExecutionKill, d.handleExecutionKill)
	d.server.Handle(control.MethodExecutionCleanup, d.handleExecutionCleanup)
	d.server.Handle(control.MethodExecutionGet, d.handleExecutionGet)
	d.server.Handle(control.MethodExecutionList, d.handleExecutionList)
	d.server.Handle(control.MethodLogRead, d.handleLogRead)
	d.server.Handle(control.MethodLogQuestions, d.handleLogQuestions)
	d.server.Handle(control.MethodStatus, d.handleStatus)
}

func (d *Daemon) handleExecutionStart(params json.RawMessage) (any, error) {
	var req control.StartRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}

	exec, err := d.supervisor.Start(d.ctx, req.SessionID, req.ProjectPath, req.Query, supervisor.Options{
		Model:          req.Model,
		PermissionMode: req.PermissionMode,
		AllowedTools:   req.AllowedTools,
		SystemPrompt:   req.SystemPrompt,
	})
	if err != nil {
		return nil, err
	}
	return executionToInfo(exec), nil
}

func (d *Daemon) handleExecutionKill(params json.RawMessage) (any, error) {
	var req control.SessionRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}
	return nil, d.supervisor.Kill(req.SessionID)
}

func (d *Daemon) handleExecutionCleanup(params json.RawMessage) (any, error) {
	var req control.SessionRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}
	return nil, d.supervisor.Cleanup(req.SessionID)
}

func (d *Daemon) handleExecutionGet(params json.RawMessage) (any, error) {
	var req control.SessionRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}

	exec, err := d.supervisor.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	return executionToInfo(exec), nil
}

func (d *Daemon) handleExecutionList(params json.RawMessage) (any, error) {
	var req control.ListRequest
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
	}

	execs := d.supervisor.List()
	if req.Limit > 0 && len(execs) > req.Limit {
		execs = execs[:req.Limit]
	}

	infos := make([]*control.ExecutionInfo, 0, len(execs))
	for _, e := range execs {
		infos = append(infos, executionToInfo(e))
	}
	return infos, nil
}

func (d *Daemon) handleLogRead(params json.RawMessage) (any, error) {
	var req control.LogRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}
	if req.ProjectPath == "" || req.SessionID == "" {
		return nil, fmt.Errorf("project_path and session_id are required")
	}

	entries := d.logs.Read(req.ProjectPath, req.SessionID)
	return entriesToInfo(entries), nil
}

func (d *Daemon) handleLogQuestions(params json.RawMessage) (any, error) {
	var req control.LogRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}
	if req.ProjectPath == "" || req.SessionID == "" {
		return nil, fmt.Errorf("project_path and session_id are required")
	}

	policy := sessionlog.Policy(d.config.SessionLogs.QuestionPolicy)
	if req.Policy != "" {
		parsed, err := sessionlog.ParsePolicy(req.Policy)
		if err != nil {
			return nil, err
		}
		policy = parsed
	}

	entries := d.logs.Questions(req.ProjectPath, req.SessionID, policy)
	return entriesToInfo(entries), nil
}

func (d *Daemon) handleStatus(_ json.RawMessage) (any, error) {
	execs := d.supervisor.List()
	running := 0
	for _, e := range execs {
		if !e.Status.IsTerminal() {
			running++
		}
	}

	return &control.StatusInfo{
		Running:       running,
		Tracked:       len(execs),
		MaxConcurrent: d.config.Executions.MaxConcurrent,
		Uptime:        time.Since(d.startedAt).Round(time.Second).String(),
	}, nil
}

func executionToInfo(e supervisor.Execution) *control.ExecutionInfo {
	info := &control.ExecutionInfo{
		SessionID:   e.SessionID,
		ProjectPath: e.ProjectPath,
		Query:       e.Query,
		Status:      string(e.Status),
		PID:         e.PID,
		ExitCode:    e.ExitCode,
		EventCount:  len(e.Events),
		StartedAt:   e.StartedAt.Format(time.RFC3339),
	}
	if !e.EndedAt.IsZero() {
		info.EndedAt = e.EndedAt.Format(time.RFC3339)
	}
	return info
}

func entriesToInfo(entries []sessionlog.Entry) []*control.LogEntryInfo {
	infos := make([]*control.LogEntryInfo, 0, len(entries))
	for _, e := range entries {
		info := &control.LogEntryInfo{
			Type:      e.Type,
			UUID:      e.UUID,
			Timestamp: e.Timestamp,
		}
		if e.Message != nil {
			info.Role = e.Message.Role
			if s, ok := e.ContentString(); ok {
				info.Content = s
			} else {
				info.Content = string(e.Message.Content)
			}
		}
		infos = append(infos, info)
	}
	return infos
}
