package types

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// MetricState distinguishes a measured value from the two sentinel states.
// The sentinels round-trip through JSON as distinct machine-readable states;
// they are never coerced to 0 or null.
type MetricState string

const (
	MetricStateMeasured         MetricState = "measured"
	MetricStateInsufficientData MetricState = "insufficient_data"
	MetricStateNotRecovered     MetricState = "not_recovered"
)

// MetricValue is a tri-state metric: a measured float, "insufficient data"
// (not enough samples to compute), or "not recovered" (the target never met
// the recovery condition within the recovery window).
type MetricValue struct {
	State MetricState
	Value float64
}

func Measured(v float64) MetricValue {
	return MetricValue{State: MetricStateMeasured, Value: v}
}

func InsufficientData() MetricValue {
	return MetricValue{State: MetricStateInsufficientData}
}

func NotRecovered() MetricValue {
	return MetricValue{State: MetricStateNotRecovered}
}

func (m MetricValue) IsMeasured() bool {
	return m.State == MetricStateMeasured
}

func (m MetricValue) String() string {
	if m.IsMeasured() {
		return fmt.Sprintf("%.2f", m.Value)
	}
	return string(m.State)
}

type metricValueJSON struct {
	State MetricState `json:"state"`
	Value *float64    `json:"value,omitempty"`
}

func (m MetricValue) MarshalJSON() ([]byte, error) {
	out := metricValueJSON{State: m.State}
	if m.IsMeasured() {
		v := m.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

func (m *MetricValue) UnmarshalJSON(data []byte) error {
	var in metricValueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.State {
	case MetricStateMeasured:
		if in.Value == nil {
			return errors.Errorf("measured metric is missing its value")
		}
		*m = Measured(*in.Value)
	case MetricStateInsufficientData:
		*m = InsufficientData()
	case MetricStateNotRecovered:
		*m = NotRecovered()
	default:
		return errors.Errorf("unknown metric state: %q", in.State)
	}
	return nil
}
