package control

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Client connects to the ccs daemon.
type Client struct {
	conn      net.Conn
	scanner   *bufio.Scanner
	mu        sync.Mutex
	pending   map[string]chan *Response
	events    chan Event
	done      chan struct{}
	connected atomic.Bool
}

// NewClient creates a new daemon client.
func NewClient(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}

	c := &Client{
		conn:    conn,
		scanner: bufio.NewScanner(conn),
		pending: make(map[string]chan *Response),
		events:  make(chan Event, 100),
		done:    make(chan struct{}),
	}
	c.scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	c.connected.Store(true)

	go c.readLoop()
	return c, nil
}

// Close disconnects from the daemon.
func (c *Client) Close() error {
	c.connected.Store(false)
	close(c.done)
	return c.conn.Close()
}

// Events returns a channel of events pushed by the daemon.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Call makes an RPC call to the daemon.
func (c *Client) Call(method string, params any) (*Response, error) {
	if !c.connected.Load() {
		return nil, fmt.Errorf("not connected to daemon")
	}

	id := uuid.NewString()
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req := Request{
		Method: method,
		Params: paramsJSON,
		ID:     id,
	}

	respChan := make(chan *Response, 1)
	c.mu.Lock()
	c.pending[id] = respChan
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	encoded, _ := json.Marshal(req)
	c.mu.Lock()
	_, err = c.conn.Write(append(encoded, '\n'))
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	select {
	case resp := <-respChan:
		return resp, nil
	case <-c.done:
		return nil, fmt.Errorf("client closed")
	}
}

func (c *Client) call(method string, params, out any) error {
	resp, err := c.Call(method, params)
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	if out == nil {
		return nil
	}
	data, _ := json.Marshal(resp.Data)
	return json.Unmarshal(data, out)
}

// StartExecution spawns a new execution and returns its snapshot.
func (c *Client) StartExecution(req StartRequest) (*ExecutionInfo, error) {
	var info ExecutionInfo
	if err := c.call(MethodExecutionStart, req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// KillExecution delivers the termination signal to an execution.
func (c *Client) KillExecution(sessionID string) error {
	return c.call(MethodExecutionKill, SessionRequest{SessionID: sessionID}, nil)
}

// CleanupExecution removes a terminal execution's record.
func (c *Client) CleanupExecution(sessionID string) error {
	return c.call(MethodExecutionCleanup, SessionRequest{SessionID: sessionID}, nil)
}

// GetExecution retrieves one execution snapshot.
func (c *Client) GetExecution(sessionID string) (*ExecutionInfo, error) {
	var info ExecutionInfo
	if err := c.call(MethodExecutionGet, SessionRequest{SessionID: sessionID}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListExecutions retrieves all tracked executions.
func (c *Client) ListExecutions(limit int) ([]ExecutionInfo, error) {
	var infos []ExecutionInfo
	if err := c.call(MethodExecutionList, ListRequest{Limit: limit}, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// ReadLog retrieves a session transcript.
func (c *Client) ReadLog(projectPath, sessionID string) ([]LogEntryInfo, error) {
	var entries []LogEntryInfo
	req := LogRequest{ProjectPath: projectPath, SessionID: sessionID}
	if err := c.call(MethodLogRead, req, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// LogQuestions retrieves the filtered user questions of a transcript.
func (c *Client) LogQuestions(projectPath, sessionID, policy string) ([]LogEntryInfo, error) {
	var entries []LogEntryInfo
	req := LogRequest{ProjectPath: projectPath, SessionID: sessionID, Policy: policy}
	if err := c.call(MethodLogQuestions, req, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Status retrieves daemon health information.
func (c *Client) Status() (*StatusInfo, error) {
	var info StatusInfo
	if err := c.call(MethodStatus, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) readLoop() {
	for c.scanner.Scan() {
		select {
		case <-c.done:
			return
		default:
		}

		var resp Response
		if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
			continue
		}

		if resp.ID != "" {
			c.mu.Lock()
			if ch, ok := c.pending[resp.ID]; ok {
				ch <- &resp
			}
			c.mu.Unlock()
			continue
		}

		// No id: a pushed event.
		var event Event
		if json.Unmarshal(c.scanner.Bytes(), &event) == nil && event.Type != "" {
			select {
			case c.events <- event:
			default: // drop if the consumer is behind
			}
		}
	}

	c.connected.Store(false)
}
