package dto

type ContainerCellRequest struct {
	X          int    `json:"x"`
	Y          int    `json:"y"`
	WorkerUUID string `json:"worker_uuid,omitempty"`
	ChildID    *uint  `json:"child_id,omitempty"`
}

type ContainerRequest struct {
	FarmID uint                   `json:"farm_id"`
	Name   string                 `json:"name"`
	Rows   int                    `json:"rows"`
	Cols   int                    `json:"cols"`
	Cells  []ContainerCellRequest `json:"cells,omitempty"`
}

type ContainerResponse struct {
	ID     uint                   `json:"id"`
	FarmID uint                   `json:"farm_id"`
	Name   string                 `json:"name"`
	Rows   int                    `json:"rows"`
	Cols   int                    `json:"cols"`
	Cells  []ContainerCellRequest `json:"cells,omitempty"`
}

type MembersResponse struct {
	Workers []string `json:"workers"`
}
