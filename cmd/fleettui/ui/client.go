package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rigfleet/app/dto"
)

// Session holds the authenticated connection to the fleet daemon. All calls
// are plain request/response; there is no push channel to keep alive.
type Session struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewSession() *Session {
	return &Session{HTTP: &http.Client{Timeout: 15 * time.Second}}
}

func (s *Session) do(method, path string, query url.Values, body any, out any) error {
	if s.BaseURL == "" {
		return fmt.Errorf("not connected")
	}
	u := strings.TrimRight(s.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out != nil && len(raw) > 0 {
		return json.Unmarshal(raw, out)
	}
	return nil
}

// Login exchanges credentials for an admin token and keeps it on the session.
func (s *Session) Login(baseURL, username, password string) error {
	s.BaseURL = baseURL
	var tok dto.TokenResponse
	if err := s.do(http.MethodPost, "/login", nil, dto.LoginRequest{Username: username, Password: password}, &tok); err != nil {
		return err
	}
	s.Token = tok.AccessToken
	return nil
}

func (s *Session) ListWorkers() ([]dto.WorkerResponse, error) {
	var out []dto.WorkerResponse
	err := s.do(http.MethodGet, "/workers", nil, nil, &out)
	return out, err
}

func (s *Session) Queue(workerUUID string) ([]dto.QueuedCommand, error) {
	q := url.Values{"uuid": {workerUUID}, "include_resolved": {"true"}}
	var out []dto.QueuedCommand
	err := s.do(http.MethodGet, "/command/queue", q, nil, &out)
	return out, err
}

func (s *Session) Messages(workerUUID string) ([]dto.MessageResponse, error) {
	q := url.Values{"uuid": {workerUUID}}
	var out []dto.MessageResponse
	err := s.do(http.MethodGet, "/workers/messages", q, nil, &out)
	return out, err
}

// SendCommand enqueues a single command on one worker's queue.
func (s *Session) SendCommand(workerUUID, command string, payload json.RawMessage) (uint, error) {
	var out struct {
		CommandID uint `json:"command_id"`
	}
	err := s.do(http.MethodPost, "/command", nil, dto.CommandRequest{
		WorkerUUID: workerUUID, Command: command, Payload: payload,
	}, &out)
	return out.CommandID, err
}
