package control

// Method names accepted by the daemon.
const (
	MethodExecutionStart   = "execution.start"
	MethodExecutionKill    = "execution.kill"
	MethodExecutionCleanup = "execution.cleanup"
	MethodExecutionGet     = "execution.get"
	MethodExecutionList    = "execution.list"
	MethodLogRead          = "log.read"
	MethodLogQuestions     = "log.questions"
	MethodStatus           = "status"
)

// Event types pushed to connected clients.
const (
	EventExecutionStarted   = "execution.started"
	EventExecutionStream    = "execution.stream"
	EventExecutionError     = "execution.error"
	EventExecutionCompleted = "execution.completed"
	EventLogChanged         = "log.changed"
)

// StartRequest asks the daemon to spawn a new execution.
type StartRequest struct {
	SessionID      string   `json:"session_id,omitempty"`
	ProjectPath    string   `json:"project_path"`
	Query          string   `json:"query"`
	Model          string   `json:"model,omitempty"`
	PermissionMode string   `json:"permission_mode,omitempty"`
	AllowedTools   []string `json:"allowed_tools,omitempty"`
	SystemPrompt   string   `json:"system_prompt,omitempty"`
}

// SessionRequest addresses an existing execution by session id.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// ListRequest bounds execution.list.
type ListRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ExecutionInfo is the wire shape of an execution snapshot.
type ExecutionInfo struct {
	SessionID   string `json:"session_id"`
	ProjectPath string `json:"project_path"`
	Query       string `json:"query"`
	Status      string `json:"status"`
	PID         int    `json:"pid,omitempty"`
	ExitCode    int    `json:"exit_code,omitempty"`
	EventCount  int    `json:"event_count"`
	StartedAt   string `json:"started_at"`
	EndedAt     string `json:"ended_at,omitempty"`
}

// LogRequest addresses a session transcript.
type LogRequest struct {
	ProjectPath string `json:"project_path"`
	SessionID   string `json:"session_id"`
	// Policy overrides the configured question filter for log.questions.
	Policy string `json:"policy,omitempty"`
}

// LogEntryInfo is the wire shape of a transcript entry.
type LogEntryInfo struct {
	Type      string `json:"type,omitempty"`
	Role      string `json:"role,omitempty"`
	Content   string `json:"content,omitempty"`
	UUID      string `json:"uuid,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// StatusInfo describes the daemon itself.
type StatusInfo struct {
	Running       int    `json:"running"`
	Tracked       int    `json:"tracked"`
	MaxConcurrent int    `json:"max_concurrent"`
	Uptime        string `json:"uptime"`
}

// StreamEventInfo is the payload of execution.stream events.
type StreamEventInfo struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Text      string `json:"text,omitempty"`
	Raw       string `json:"raw,omitempty"`
}
