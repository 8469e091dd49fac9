package fraud

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localperks/review-rewards/pkg/common"
	"github.com/localperks/review-rewards/pkg/config"
)

type mockDeviceHistory struct {
	count int
	err   error

	gotFingerprint string
	calls          int
}

func (m *mockDeviceHistory) CountSameDeviceSince(_ context.Context, fingerprint string, _ time.Time) (int, error) {
	m.calls++
	m.gotFingerprint = fingerprint
	return m.count, m.err
}

func testFraudConfig() config.FraudConfig {
	return config.FraudConfig{
		MaxGPSAccuracyMeters:  50,
		AnomalyRejectCount:    3,
		MinLocationSamples:    5,
		DeviceReuseFlagCount:  3,
		MaxReviewsPerDay:      5,
		ExpectedVerifySeconds: 30,
		SuspiciousLogCapacity: 100,
	}
}

func cleanSubmission() *SubmissionContext {
	return &SubmissionContext{
		GPSAccuracyMeters:   12.5,
		VerificationSeconds: 30,
		MotionDetected:      true,
		LocationSampleCount: 8,
		DeviceFingerprint:   "device-abc",
		Platform:            "ios",
	}
}

func TestEvaluate_CleanSubmissionAccepted(t *testing.T) {
	rec := NewRecorder(100)
	eval := NewEvaluator(testFraudConfig(), rec, &mockDeviceHistory{count: 0})

	decision, err := eval.Evaluate(context.Background(), uuid.New(), cleanSubmission())
	require.NoError(t, err)

	assert.Equal(t, OutcomeAccept, decision.Outcome)
	assert.False(t, decision.Rejected())
	assert.Empty(t, decision.Flags)
	assert.Equal(t, 0, rec.Len())
}

func TestEvaluate_PoorAccuracyRejects(t *testing.T) {
	rec := NewRecorder(100)
	eval := NewEvaluator(testFraudConfig(), rec, &mockDeviceHistory{})

	sub := cleanSubmission()
	sub.GPSAccuracyMeters = 50.1

	decision, err := eval.Evaluate(context.Background(), uuid.New(), sub)
	require.NoError(t, err)

	assert.True(t, decision.Rejected())
	assert.Equal(t, common.ReasonPoorGPSAccuracy, decision.Reason)
	assert.Contains(t, decision.Message, "GPS accuracy")

	entries := rec.Query(EventPoorGPSAccuracy, 0)
	require.Len(t, entries, 1)
	assert.Equal(t, 50.1, entries[0].Metadata["accuracy_meters"])
}

func TestEvaluate_AccuracyAtThresholdPasses(t *testing.T) {
	rec := NewRecorder(100)
	eval := NewEvaluator(testFraudConfig(), rec, &mockDeviceHistory{})

	sub := cleanSubmission()
	sub.GPSAccuracyMeters = 50

	decision, err := eval.Evaluate(context.Background(), uuid.New(), sub)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccept, decision.Outcome)
}

func TestEvaluate_NaNAccuracyRejects(t *testing.T) {
	rec := NewRecorder(100)
	eval := NewEvaluator(testFraudConfig(), rec, &mockDeviceHistory{})

	sub := cleanSubmission()
	sub.GPSAccuracyMeters = math.NaN()

	decision, err := eval.Evaluate(context.Background(), uuid.New(), sub)
	require.NoError(t, err)
	assert.True(t, decision.Rejected())
	assert.Equal(t, common.ReasonPoorGPSAccuracy, decision.Reason)
}

func TestEvaluate_MockLocationRejects(t *testing.T) {
	rec := NewRecorder(100)
	eval := NewEvaluator(testFraudConfig(), rec, &mockDeviceHistory{})

	sub := cleanSubmission()
	sub.MockLocation = true

	decision, err := eval.Evaluate(context.Background(), uuid.New(), sub)
	require.NoError(t, err)

	assert.True(t, decision.Rejected())
	assert.Equal(t, common.ReasonMockLocation, decision.Reason)
	assert.Len(t, rec.Query(EventMockLocation, 0), 1)
}

func TestEvaluate_AccuracyCheckedBeforeMockLocation(t *testing.T) {
	rec := NewRecorder(100)
	eval := NewEvaluator(testFraudConfig(), rec, &mockDeviceHistory{})

	sub := cleanSubmission()
	sub.GPSAccuracyMeters = 200
	sub.MockLocation = true

	decision, err := eval.Evaluate(context.Background(), uuid.New(), sub)
	require.NoError(t, err)

	// accuracy runs first and short-circuits
	assert.Equal(t, common.ReasonPoorGPSAccuracy, decision.Reason)
	assert.Empty(t, rec.Query(EventMockLocation, 0))
}

func TestEvaluate_ThreeAnomaliesReject(t *testing.T) {
	rec := NewRecorder(100)
	eval := NewEvaluator(testFraudConfig(), rec, &mockDeviceHistory{})

	sub := cleanSubmission()
	sub.ClientAnomalies = []string{"debugger_attached", "rooted_device", "emulator"}

	decision, err := eval.Evaluate(context.Background(), uuid.New(), sub)
	require.NoError(t, err)

	assert.True(t, decision.Rejected())
	assert.Equal(t, common.ReasonSecurityConcerns, decision.Reason)
	// deliberately generic so clients learn nothing about which signals fired
	assert.NotContains(t, decision.Message, "debugger")
	assert.Len(t, rec.Query(EventExcessiveAnomalies, 0), 1)
}

func TestEvaluate_TwoAnomaliesFlagOnly(t *testing.T) {
	rec := NewRecorder(100)
	eval := NewEvaluator(testFraudConfig(), rec, &mockDeviceHistory{})

	sub := cleanSubmission()
	sub.ClientAnomalies = []string{"debugger_attached", "rooted_device"}

	decision, err := eval.Evaluate(context.Background(), uuid.New(), sub)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFlag, decision.Outcome)
	assert.False(t, decision.Rejected())
	assert.Contains(t, decision.Flags, EventClientAnomalies)
	assert.Len(t, rec.Query(EventClientAnomalies, 0), 1)
}

func TestEvaluate_ShortLocationTrailFlags(t *testing.T) {
	rec := NewRecorder(100)
	eval := NewEvaluator(testFraudConfig(), rec, &mockDeviceHistory{})

	sub := cleanSubmission()
	sub.LocationSampleCount = 4

	decision, err := eval.Evaluate(context.Background(), uuid.New(), sub)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFlag, decision.Outcome)
	assert.Contains(t, decision.Flags, EventShortLocationTrail)
}

func TestEvaluate_DeviceReuseFlags(t *testing.T) {
	rec := NewRecorder(100)
	devices := &mockDeviceHistory{count: 3}
	eval := NewEvaluator(testFraudConfig(), rec, devices)

	decision, err := eval.Evaluate(context.Background(), uuid.New(), cleanSubmission())
	require.NoError(t, err)

	assert.Equal(t, OutcomeFlag, decision.Outcome)
	assert.Contains(t, decision.Flags, EventDeviceReuse)
	assert.Equal(t, "device-abc", devices.gotFingerprint)
}

func TestEvaluate_DeviceHistoryErrorDoesNotReject(t *testing.T) {
	rec := NewRecorder(100)
	devices := &mockDeviceHistory{err: errors.New("db down")}
	eval := NewEvaluator(testFraudConfig(), rec, devices)

	decision, err := eval.Evaluate(context.Background(), uuid.New(), cleanSubmission())
	require.NoError(t, err)

	assert.Equal(t, OutcomeAccept, decision.Outcome)
	assert.Empty(t, decision.Flags)
}

func TestEvaluate_EmptyFingerprintSkipsDeviceLookup(t *testing.T) {
	rec := NewRecorder(100)
	devices := &mockDeviceHistory{count: 10}
	eval := NewEvaluator(testFraudConfig(), rec, devices)

	sub := cleanSubmission()
	sub.DeviceFingerprint = ""

	decision, err := eval.Evaluate(context.Background(), uuid.New(), sub)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAccept, decision.Outcome)
	assert.Equal(t, 0, devices.calls)
}

func TestEvaluate_MultipleSoftSignalsAccumulate(t *testing.T) {
	rec := NewRecorder(100)
	devices := &mockDeviceHistory{count: 5}
	eval := NewEvaluator(testFraudConfig(), rec, devices)

	sub := cleanSubmission()
	sub.ClientAnomalies = []string{"rooted_device"}
	sub.LocationSampleCount = 1

	decision, err := eval.Evaluate(context.Background(), uuid.New(), sub)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFlag, decision.Outcome)
	assert.ElementsMatch(t, []EventType{EventClientAnomalies, EventShortLocationTrail, EventDeviceReuse}, decision.Flags)
	assert.Equal(t, 3, rec.Len())
}

func TestEvaluate_VerificationMismatchIsAdvisoryOnly(t *testing.T) {
	rec := NewRecorder(100)
	eval := NewEvaluator(testFraudConfig(), rec, &mockDeviceHistory{})

	sub := cleanSubmission()
	sub.VerificationSeconds = 3

	decision, err := eval.Evaluate(context.Background(), uuid.New(), sub)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAccept, decision.Outcome)
	assert.Equal(t, 0, rec.Len())
}
