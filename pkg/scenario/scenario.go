package scenario

import (
	"fmt"
	"net/url"
	"os"
	"sort"

	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/palantir/stacktrace"
	"gopkg.in/yaml.v2"
)

// Catalog holds the validated scenario definitions, grouped into named sets
// (smoke/standard/stress). Pure data; immutable once loaded.
type Catalog struct {
	Groups map[string][]types.ChaosScenario `yaml:"groups"`
}

// continuous faults take light|medium|heavy; the discrete outage faults are
// one-shot events and take short|extended instead
var continuousIntensities = map[types.Intensity]bool{
	types.IntensityLight:  true,
	types.IntensityMedium: true,
	types.IntensityHeavy:  true,
}

var discreteIntensities = map[types.Intensity]bool{
	types.IntensityShort:    true,
	types.IntensityExtended: true,
}

var validComparators = map[string]bool{
	"<=": true,
	">=": true,
}

var validMetrics = func() map[string]bool {
	m := make(map[string]bool, len(types.MetricOrder))
	for _, name := range types.MetricOrder {
		m[name] = true
	}
	return m
}()

// LoadCatalog reads and validates the scenario catalog file
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: path, Reason: fmt.Sprintf("unable to read scenario catalog: %v", err)}
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes and validates a raw scenario catalog document
func ParseCatalog(raw []byte) (*Catalog, error) {
	catalog := Catalog{}
	if err := yaml.UnmarshalStrict(raw, &catalog); err != nil {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Reason: fmt.Sprintf("unable to decode scenario catalog: %v", err)}
	}
	if len(catalog.Groups) == 0 {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Reason: "scenario catalog contains no groups"}
	}
	for group, scenarios := range catalog.Groups {
		if len(scenarios) == 0 {
			return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: group, Reason: "scenario group is empty"}
		}
		seen := map[string]bool{}
		for i := range scenarios {
			if err := validateScenario(scenarios[i]); err != nil {
				return nil, stacktrace.Propagate(err, "could not validate scenario in group '%s'", group)
			}
			if seen[scenarios[i].Name] {
				return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: group, Reason: fmt.Sprintf("duplicate scenario name '%s' in group", scenarios[i].Name)}
			}
			seen[scenarios[i].Name] = true
		}
	}
	return &catalog, nil
}

// Group returns the scenarios of one named group, in declaration order
func (c *Catalog) Group(name string) ([]types.ChaosScenario, error) {
	scenarios, ok := c.Groups[name]
	if !ok {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: name, Reason: fmt.Sprintf("scenario group not found, available groups: %v", c.GroupNames())}
	}
	return scenarios, nil
}

// GroupNames lists the catalog's groups, sorted
func (c *Catalog) GroupNames() []string {
	names := make([]string, 0, len(c.Groups))
	for name := range c.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validateScenario(s types.ChaosScenario) error {
	if s.Name == "" {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Reason: "scenario name is required"}
	}
	if _, err := types.ParseFailureType(string(s.FailureType)); err != nil {
		return stacktrace.Propagate(err, "could not validate scenario '%s'", s.Name)
	}
	if err := validateIntensity(s); err != nil {
		return err
	}
	if s.DurationSeconds <= 0 {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: s.Name, Reason: fmt.Sprintf("duration_seconds must be positive, got %d", s.DurationSeconds)}
	}
	if err := validateTargetURL(s); err != nil {
		return err
	}
	if s.AbortThresholds != nil && s.AbortThresholds.MaxErrorRatePercent <= 0 {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: s.Name, Reason: "abort_thresholds.max_error_rate_percent must be positive"}
	}
	for env, overrides := range s.EnvironmentOverrides {
		if err := ValidateProfile(overrides); err != nil {
			return stacktrace.Propagate(err, "could not validate overrides of scenario '%s' for environment '%s'", s.Name, env)
		}
	}
	return nil
}

func validateIntensity(s types.ChaosScenario) error {
	valid := continuousIntensities
	switch s.FailureType {
	case types.FailureTypeContainerCrash, types.FailureTypeDependencyDowntime:
		valid = discreteIntensities
	}
	if !valid[s.Intensity] {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: s.Name, Reason: fmt.Sprintf("intensity '%s' is not supported for failure type '%s'", s.Intensity, s.FailureType)}
	}
	return nil
}

func validateTargetURL(s types.ChaosScenario) error {
	if s.Target == "" {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: s.Name, Reason: "target URL is required"}
	}
	u, err := url.Parse(s.Target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: s.Name, Reason: fmt.Sprintf("target '%s' is not a valid http(s) URL", s.Target)}
	}
	return nil
}

// ValidateProfile checks an SLO threshold map for unknown metrics and
// comparators
func ValidateProfile(profile types.SLOProfile) error {
	for metric, threshold := range profile {
		if !validMetrics[metric] {
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: metric, Reason: fmt.Sprintf("unknown SLO metric, supported metrics: %v", types.MetricOrder)}
		}
		if !validComparators[threshold.Comparator] {
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: metric, Reason: fmt.Sprintf("comparator '%s' is not supported, use '<=' or '>='", threshold.Comparator)}
		}
	}
	return nil
}
