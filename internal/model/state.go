package model

// EndpointApplianceState is the occupancy gate for one appliance on one endpoint.
// IsOccupied is true iff RoomID and RunLogID are both set.
type EndpointApplianceState struct {
	ID          int64  `gorm:"primaryKey"`
	EndpointID  int64  `gorm:"not null;uniqueIndex:idx_endpoint_appliance,priority:1"`
	ApplianceID int64  `gorm:"not null;uniqueIndex:idx_endpoint_appliance,priority:2"`
	IsOccupied  bool   `gorm:"not null;default:false;check:occupancy_consistent,(is_occupied AND room_id IS NOT NULL AND run_log_id IS NOT NULL) OR (NOT is_occupied AND room_id IS NULL AND run_log_id IS NULL)"`
	RoomID      *int64 `gorm:"index"`
	RunLogID    *int64 `gorm:"index"`

	// Associations
	Endpoint  Endpoint  `gorm:"constraint:OnDelete:CASCADE"`
	Appliance Appliance `gorm:"constraint:OnDelete:CASCADE"`
	Room      *Room     `gorm:"constraint:OnDelete:RESTRICT"`
	RunLog    *RunLog   `gorm:"constraint:OnDelete:RESTRICT"`
}

// Occupy binds the state to a room and its running log.
func (s *EndpointApplianceState) Occupy(roomID, runLogID int64) {
	s.IsOccupied = true
	s.RoomID = &roomID
	s.RunLogID = &runLogID
}

// Release returns the state to idle.
func (s *EndpointApplianceState) Release() {
	s.IsOccupied = false
	s.RoomID = nil
	s.RunLogID = nil
}
