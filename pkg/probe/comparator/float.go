package comparator

import (
	"fmt"
	"strconv"

	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
)

// CompareFloat compares floating numbers for specific operation
// it check for the >=, >, <=, <, ==, != operators
func (model Model) CompareFloat(errorCode cerrors.ErrorType) error {

	obj := Float{}
	obj.setValues(model.a, model.b)

	switch model.operator {
	case ">=":
		if !obj.isGreaterorEqual() {
			return cerrors.Error{ErrorCode: errorCode, Target: model.metricName, Reason: fmt.Sprintf("actual value: %v is not greater than or equal to the expected value: %v", obj.a, obj.b)}
		}
	case "<=":
		if !obj.isLesserorEqual() {
			return cerrors.Error{ErrorCode: errorCode, Target: model.metricName, Reason: fmt.Sprintf("actual value: %v is not lesser than or equal to the expected value: %v", obj.a, obj.b)}
		}
	case ">":
		if !obj.isGreater() {
			return cerrors.Error{ErrorCode: errorCode, Target: model.metricName, Reason: fmt.Sprintf("actual value: %v is not greater than the expected value: %v", obj.a, obj.b)}
		}
	case "<":
		if !obj.isLesser() {
			return cerrors.Error{ErrorCode: errorCode, Target: model.metricName, Reason: fmt.Sprintf("actual value: %v is not lesser than the expected value: %v", obj.a, obj.b)}
		}
	case "==":
		if !obj.isEqual() {
			return cerrors.Error{ErrorCode: errorCode, Target: model.metricName, Reason: fmt.Sprintf("actual value: %v is not equal to the expected value: %v", obj.a, obj.b)}
		}
	case "!=":
		if !obj.isNotEqual() {
			return cerrors.Error{ErrorCode: errorCode, Target: model.metricName, Reason: fmt.Sprintf("actual value: %v should not match the expected value: %v", obj.a, obj.b)}
		}
	default:
		return cerrors.Error{ErrorCode: errorCode, Target: model.metricName, Reason: fmt.Sprintf("criteria '%s' not supported in the comparator", model.operator)}
	}
	return nil
}

// Float contains operands for float comparator check
type Float struct {
	a float64
	b float64
}

// setValues set the values inside Float struct
func (f *Float) setValues(a, b interface{}) {
	f.a = toFloat(a)
	f.b = toFloat(b)
}

func toFloat(v interface{}) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case string:
		parsed, _ := strconv.ParseFloat(value, 64)
		return parsed
	}
	return 0
}

// isGreater check for the first number should be greater than second number
func (f *Float) isGreater() bool {
	return f.a > f.b
}

// isGreaterorEqual check for the first number should be greater than or equals to the second number
func (f *Float) isGreaterorEqual() bool {
	return f.isGreater() || f.isEqual()
}

// isLesser check for the first number should be lesser than second number
func (f *Float) isLesser() bool {
	return f.a < f.b
}

// isLesserorEqual check for the first number should be less than or equals to the second number
func (f *Float) isLesserorEqual() bool {
	return f.isLesser() || f.isEqual()
}

// isEqual check for the first number should be equals to the second number
func (f *Float) isEqual() bool {
	return f.a == f.b
}

// isNotEqual check for the first number should be not equals to the second number
func (f *Float) isNotEqual() bool {
	return f.a != f.b
}
