package dto

import "encoding/json"

// ScheduleAction: những gì schedule áp lên target khi tới giờ. Các phần đều
// optional nhưng ít nhất một phần phải có.
type ScheduleAction struct {
	FlightSheetID *uint           `json:"flight_sheet_id,omitempty"`
	OCProfileID   *uint           `json:"oc_profile_id,omitempty"`
	OCConfig      *OCConfig       `json:"oc_config,omitempty"` // inline, thay cho profile
	OCApplyMode   ApplyMode       `json:"oc_apply_mode,omitempty"`
	Commands      []ActionCommand `json:"commands,omitempty"`
}

type ActionCommand struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ScheduleRequest struct {
	FarmID      uint           `json:"farm_id"`
	Name        string         `json:"name"`
	TagIDs      []uint         `json:"tag_ids,omitempty"`
	ContainerID *uint          `json:"container_id,omitempty"`
	Action      ScheduleAction `json:"action"`
	LaunchAt    int64          `json:"launch_at"` // unix seconds
	RRule       string         `json:"rrule,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
}

type ScheduleResponse struct {
	ID           uint           `json:"id"`
	FarmID       uint           `json:"farm_id"`
	Name         string         `json:"name"`
	TagIDs       []uint         `json:"tag_ids,omitempty"`
	ContainerID  *uint          `json:"container_id,omitempty"`
	Action       ScheduleAction `json:"action"`
	LaunchAt     int64          `json:"launch_at"`
	RRule        string         `json:"rrule,omitempty"`
	Timezone     string         `json:"timezone,omitempty"`
	Active       bool           `json:"active"`
	PrevLaunchAt *int64         `json:"prev_launch_at,omitempty"`
	NextLaunchAt *int64         `json:"next_launch_at,omitempty"`
}
