package comparator

import (
	"testing"

	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
)

func TestCompareFloat(t *testing.T) {
	tests := []struct {
		name     string
		a        interface{}
		b        interface{}
		operator string
		wantErr  bool
	}{
		{"lesser or equal passes", 10.0, 20.0, "<=", false},
		{"lesser or equal fails", 30.0, 20.0, "<=", true},
		{"exact threshold equality passes for <=", 500.0, 500.0, "<=", false},
		{"exact threshold equality passes for >=", 99.0, 99.0, ">=", false},
		{"greater or equal passes", 99.9, 99.0, ">=", false},
		{"greater or equal fails", 95.0, 99.0, ">=", true},
		{"strict lesser fails on equality", 5.0, 5.0, "<", true},
		{"strict greater fails on equality", 5.0, 5.0, ">", true},
		{"equality", 1.5, 1.5, "==", false},
		{"inequality", 1.5, 2.5, "!=", false},
		{"string operands parse", "550", "500", "<=", true},
		{"int operands convert", 3, 5, "<=", false},
		{"unsupported criteria", 1.0, 2.0, "~=", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FirstValue(tt.a).
				SecondValue(tt.b).
				Criteria(tt.operator).
				Metric("mttr_seconds").
				CompareFloat(cerrors.ErrorTypeSLOValidation)
			if (err != nil) != tt.wantErr {
				t.Errorf("CompareFloat() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCompareFloatErrorCarriesMetric(t *testing.T) {
	err := FirstValue(550.0).
		SecondValue(500.0).
		Criteria("<=").
		Metric("max_latency_degradation_ms").
		CompareFloat(cerrors.ErrorTypeSLOValidation)
	if err == nil {
		t.Fatal("expected comparison failure")
	}
	cerr, ok := err.(cerrors.Error)
	if !ok {
		t.Fatalf("expected cerrors.Error, got %T", err)
	}
	if cerr.Target != "max_latency_degradation_ms" {
		t.Errorf("expected metric name in target, got %q", cerr.Target)
	}
	if cerr.ErrorCode != cerrors.ErrorTypeSLOValidation {
		t.Errorf("unexpected error code %q", cerr.ErrorCode)
	}
}
