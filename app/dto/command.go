package dto

import "encoding/json"

type CommandRequest struct {
	WorkerUUID string          `json:"worker_uuid"`
	Command    string          `json:"command"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// SelectionSpec: đúng một trong ba cách chọn target. Tags match ANY theo mặc
// định của hệ thống (đổi được qua config).
type SelectionSpec struct {
	WorkerUUIDs []string `json:"worker_uuids,omitempty"`
	TagIDs      []uint   `json:"tag_ids,omitempty"`
	SearchID    string   `json:"search_id,omitempty"`
}

type FanOutRequest struct {
	Selection SelectionSpec   `json:"selection"`
	Command   string          `json:"command"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Async     bool            `json:"async,omitempty"`
}

// FanOutEntry: kết quả cho từng worker trong batch; CommandID hoặc Error.
type FanOutEntry struct {
	WorkerUUID string `json:"worker_uuid"`
	CommandID  uint   `json:"command_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

type FanOutResponse struct {
	Commands []FanOutEntry `json:"commands"`
	Failed   int           `json:"failed"`
}

type QueuedCommand struct {
	ID        uint            `json:"id"`
	Command   string          `json:"command"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Status    string          `json:"status"`
	CreatedAt int64           `json:"created_at"`
}

type ReportRequest struct {
	CommandID uint            `json:"command_id"`
	Level     string          `json:"level,omitempty"` // success|info|warning|danger|file
	Title     string          `json:"title,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

type SnapshotResponse struct {
	SearchID string   `json:"search_id"`
	Workers  []string `json:"workers"`
}
