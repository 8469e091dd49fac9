package fraud

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a single fraud signal kind
type EventType string

const (
	EventPoorGPSAccuracy    EventType = "poor_gps_accuracy"
	EventMockLocation       EventType = "mock_location"
	EventExcessiveAnomalies EventType = "excessive_anomalies"
	EventClientAnomalies    EventType = "client_anomalies"
	EventShortLocationTrail EventType = "short_location_trail"
	EventDeviceReuse        EventType = "device_reuse"
	EventVerifyTimeMismatch EventType = "verify_time_mismatch"
)

// Outcome is the overall verdict for a submission
type Outcome string

const (
	OutcomeAccept Outcome = "accept"
	OutcomeFlag   Outcome = "flag"
	OutcomeReject Outcome = "reject"
)

// SubmissionContext carries the security metadata a client reports with a
// review submission.
type SubmissionContext struct {
	GPSAccuracyMeters   float64  `json:"gps_accuracy_meters"`
	VerificationSeconds float64  `json:"verification_seconds"`
	MotionDetected      bool     `json:"motion_detected"`
	MockLocation        bool     `json:"mock_location"`
	LocationSampleCount int      `json:"location_sample_count"`
	ClientAnomalies     []string `json:"client_anomalies"`
	DeviceFingerprint   string   `json:"device_fingerprint"`
	Platform            string   `json:"platform"`
}

// Decision is the evaluator's verdict plus any soft signals recorded on the way
type Decision struct {
	Outcome Outcome     `json:"outcome"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message,omitempty"`
	Flags   []EventType `json:"flags,omitempty"`
}

// Rejected reports whether the submission must be turned away
func (d *Decision) Rejected() bool {
	return d.Outcome == OutcomeReject
}

// Entry is one recorded suspicious-activity event
type Entry struct {
	ActorID   uuid.UUID              `json:"actor_id"`
	EventType EventType              `json:"event_type"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
