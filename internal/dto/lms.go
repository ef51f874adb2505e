package dto

// LMSMappingRequest captures POST/PUT /units/:unit_id/lms payloads.
type LMSMappingRequest struct {
	OrgUnitID     string  `json:"orgUnitId" validate:"required,max=64"`
	GradeObjectID *string `json:"gradeObjectId,omitempty" validate:"omitempty,max=64"`
}

// LMSLoginURLResponse carries the authorization URL the browser should open.
type LMSLoginURLResponse struct {
	URL string `json:"url"`
}

// LMSEndpointResponse exposes the configured API host.
type LMSEndpointResponse struct {
	Endpoint string `json:"endpoint"`
}

// GradeSyncTriggerResponse is returned once a grade transfer is queued.
type GradeSyncTriggerResponse struct {
	JobID  string `json:"jobId"`
	UnitID string `json:"unitId"`
}

// GradeSyncAvailabilityResponse reports whether a result exists and whether a run is active.
type GradeSyncAvailabilityResponse struct {
	Available bool `json:"available"`
	Running   bool `json:"running"`
}

// GradeWeightingResponse reports the org unit grading system.
type GradeWeightingResponse struct {
	Weighted bool `json:"weighted"`
}
