package query

import (
	"fmt"
	"time"
)

// TimeoutError carries the context the HTTP boundary needs to render a 408
// when a query's global deadline runs out mid-pipeline.
type TimeoutError struct {
	TimeoutSeconds  float64
	ElapsedMS       float64
	StageName       string
	StagesCompleted int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("query timed out before stage %q: %.0fms elapsed of %.0fs budget (%d stages completed)",
		e.StageName, e.ElapsedMS, e.TimeoutSeconds, e.StagesCompleted)
}

const (
	minTimeoutSeconds = 1.0
	maxTimeoutSeconds = 120.0
)

// clampTimeoutSeconds enforces the [1, 120] second bound on a requested
// query timeout.
func clampTimeoutSeconds(seconds float64) float64 {
	if seconds < minTimeoutSeconds {
		return minTimeoutSeconds
	}
	if seconds > maxTimeoutSeconds {
		return maxTimeoutSeconds
	}
	return seconds
}

// TimeoutManager enforces one global deadline across a query's stages and
// records per-stage timings for the final metrics payload.
type TimeoutManager struct {
	timeoutSeconds float64
	deadline       time.Time
	start          time.Time
	now            func() time.Time
	stageTimings   map[string]float64
}

// NewTimeoutManager starts the clock; timeoutSeconds is clamped to [1, 120].
func NewTimeoutManager(timeoutSeconds float64) *TimeoutManager {
	return newTimeoutManagerAt(timeoutSeconds, time.Now)
}

func newTimeoutManagerAt(timeoutSeconds float64, now func() time.Time) *TimeoutManager {
	clamped := clampTimeoutSeconds(timeoutSeconds)
	start := now()
	return &TimeoutManager{
		timeoutSeconds: clamped,
		start:          start,
		deadline:       start.Add(time.Duration(clamped * float64(time.Second))),
		now:            now,
		stageTimings:   make(map[string]float64),
	}
}

// AssertTimeAvailable fails fast with a *TimeoutError when fewer than
// minRequiredSeconds remain before the deadline.
func (m *TimeoutManager) AssertTimeAvailable(minRequiredSeconds float64, stageName string, stagesCompleted int) error {
	remaining := time.Until(m.deadline)
	if m.now != nil {
		remaining = m.deadline.Sub(m.now())
	}
	if remaining.Seconds() < minRequiredSeconds {
		return &TimeoutError{
			TimeoutSeconds:  m.timeoutSeconds,
			ElapsedMS:       m.ElapsedMS(),
			StageName:       stageName,
			StagesCompleted: stagesCompleted,
		}
	}
	return nil
}

// ElapsedMS returns the wall-clock time since the manager started.
func (m *TimeoutManager) ElapsedMS() float64 {
	return float64(m.now().Sub(m.start).Milliseconds())
}

// LogStageTiming records one stage's latency for later inclusion in
// QueryGenerationMetadata; it does not itself emit a log line.
func (m *TimeoutManager) LogStageTiming(stage string, latencyMS float64) {
	m.stageTimings[stage] = latencyMS
}

// StageTimings returns a copy of the recorded per-stage latencies.
func (m *TimeoutManager) StageTimings() map[string]float64 {
	out := make(map[string]float64, len(m.stageTimings))
	for k, v := range m.stageTimings {
		out[k] = v
	}
	return out
}
