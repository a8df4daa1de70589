package dto

import "encoding/json"

type RegisterRequest struct {
	UUID     string `json:"uuid,omitempty"` // rỗng -> server cấp mới
	FarmID   uint   `json:"farm_id"`
	Name     string `json:"name"`
	Platform string `json:"platform"` // rig|asic|device
}

type RegisterResponse struct {
	UUID  string `json:"uuid"`
	Token string `json:"token"`
}

// PollResponse là toàn bộ những gì worker cần sau một lần poll: queue hiện tại
// (không bị clear) + config đã resolve.
type PollResponse struct {
	Commands      []QueuedCommand `json:"commands"`
	FlightSheetID *uint           `json:"flight_sheet_id,omitempty"`
	OCConfig      *OCConfig       `json:"oc_config,omitempty"`
	OCAlgo        string          `json:"oc_algo,omitempty"`
	MinerConfig   json.RawMessage `json:"miner_config,omitempty"`
}

type WorkerResponse struct {
	UUID          string `json:"uuid"`
	FarmID        uint   `json:"farm_id"`
	Name          string `json:"name"`
	Platform      string `json:"platform"`
	Active        bool   `json:"active"`
	Online        bool   `json:"online"`
	TagIDs        []uint `json:"tag_ids,omitempty"`
	FlightSheetID *uint  `json:"flight_sheet_id,omitempty"`
	OCAlgo        string `json:"oc_algo,omitempty"`
	LastSeenAt    *int64 `json:"last_seen_at,omitempty"`
	PendingCmds   int    `json:"pending_commands"`
}

type MessageResponse struct {
	ID        uint            `json:"id"`
	CommandID *uint           `json:"command_id,omitempty"`
	Level     string          `json:"level"`
	Title     string          `json:"title"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

type TagAssignRequest struct {
	TagIDs []uint `json:"tag_ids"`
}
