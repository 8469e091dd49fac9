package fraud

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localperks/review-rewards/pkg/common"
	"github.com/localperks/review-rewards/pkg/config"
	"github.com/localperks/review-rewards/pkg/logger"
)

// DeviceHistory supplies past-submission counts for a device fingerprint
type DeviceHistory interface {
	CountSameDeviceSince(ctx context.Context, fingerprint string, since time.Time) (int, error)
}

// Evaluator scores a submission's security metadata against configured
// thresholds. Hard signals reject the submission outright; soft signals are
// recorded and let it through.
type Evaluator struct {
	cfg      config.FraudConfig
	recorder *Recorder
	devices  DeviceHistory
}

// NewEvaluator creates a fraud evaluator
func NewEvaluator(cfg config.FraudConfig, recorder *Recorder, devices DeviceHistory) *Evaluator {
	return &Evaluator{
		cfg:      cfg,
		recorder: recorder,
		devices:  devices,
	}
}

// Evaluate applies the fraud rules in fixed order. The first reject rule that
// trips short-circuits; flag rules accumulate and never halt the submission.
func (e *Evaluator) Evaluate(ctx context.Context, actorID uuid.UUID, sub *SubmissionContext) (*Decision, error) {
	// Rule 1: GPS accuracy. Readings worse than the threshold mean the fix
	// is too loose to place the user inside any sensible geofence.
	if math.IsNaN(sub.GPSAccuracyMeters) || sub.GPSAccuracyMeters > e.cfg.MaxGPSAccuracyMeters {
		e.recorder.Record(actorID, EventPoorGPSAccuracy, map[string]interface{}{
			"accuracy_meters": sub.GPSAccuracyMeters,
			"threshold":       e.cfg.MaxGPSAccuracyMeters,
			"platform":        sub.Platform,
		})
		return &Decision{
			Outcome: OutcomeReject,
			Reason:  common.ReasonPoorGPSAccuracy,
			Message: "poor GPS accuracy, move to an open area and try again",
		}, nil
	}

	// Rule 2: mock location. Always decisive regardless of anything else.
	if sub.MockLocation {
		e.recorder.Record(actorID, EventMockLocation, map[string]interface{}{
			"platform":    sub.Platform,
			"fingerprint": sub.DeviceFingerprint,
		})
		return &Decision{
			Outcome: OutcomeReject,
			Reason:  common.ReasonMockLocation,
			Message: "location could not be verified",
		}, nil
	}

	// Rules 3-4: client-reported anomalies. Three or more is decisive, one
	// or two is advisory.
	anomalies := len(sub.ClientAnomalies)
	var flags []EventType
	if anomalies >= e.cfg.AnomalyRejectCount {
		e.recorder.Record(actorID, EventExcessiveAnomalies, map[string]interface{}{
			"anomalies": sub.ClientAnomalies,
			"count":     anomalies,
		})
		return &Decision{
			Outcome: OutcomeReject,
			Reason:  common.ReasonSecurityConcerns,
			Message: "submission could not be verified due to multiple security concerns",
		}, nil
	}
	if anomalies > 0 {
		e.recorder.Record(actorID, EventClientAnomalies, map[string]interface{}{
			"anomalies": sub.ClientAnomalies,
			"count":     anomalies,
		})
		flags = append(flags, EventClientAnomalies)
	}

	// Rule 5: location trail length. Informational only; a fresh GPS session
	// legitimately produces few samples.
	if sub.LocationSampleCount < e.cfg.MinLocationSamples {
		e.recorder.Record(actorID, EventShortLocationTrail, map[string]interface{}{
			"samples":  sub.LocationSampleCount,
			"expected": e.cfg.MinLocationSamples,
		})
		flags = append(flags, EventShortLocationTrail)
	}

	// Rule 6: device fingerprint reuse across reviews today.
	if sub.DeviceFingerprint != "" && e.devices != nil {
		since := startOfDay(time.Now())
		count, err := e.devices.CountSameDeviceSince(ctx, sub.DeviceFingerprint, since)
		if err != nil {
			// Fail closed would lock out legitimate users on a read hiccup;
			// this signal is advisory, so log and move on.
			logger.WithContext(ctx).Warn("device history lookup failed",
				zap.String("actor_id", actorID.String()),
				zap.Error(err))
		} else if count >= e.cfg.DeviceReuseFlagCount {
			e.recorder.Record(actorID, EventDeviceReuse, map[string]interface{}{
				"fingerprint":   sub.DeviceFingerprint,
				"reviews_today": count,
			})
			flags = append(flags, EventDeviceReuse)
		}
	}

	// The client is expected to hold the verification screen for a fixed
	// interval; a mismatch is logged but has never been an enforcement
	// signal.
	expected := float64(e.cfg.ExpectedVerifySeconds)
	if expected > 0 && sub.VerificationSeconds != expected {
		logger.WithContext(ctx).Debug("verification duration mismatch",
			zap.String("actor_id", actorID.String()),
			zap.Float64("reported_seconds", sub.VerificationSeconds),
			zap.Float64("expected_seconds", expected))
	}

	outcome := OutcomeAccept
	if len(flags) > 0 {
		outcome = OutcomeFlag
		logger.WithContext(ctx).Info("submission flagged by soft fraud signals",
			zap.String("actor_id", actorID.String()),
			zap.String("flags", fmt.Sprintf("%v", flags)))
	}

	return &Decision{Outcome: outcome, Flags: flags}, nil
}

// startOfDay truncates t to local midnight
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
