package scenario

import (
	"fmt"
	"os"

	"github.com/chaosgate/chaosgate-go/pkg/cerrors"
	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/palantir/stacktrace"
	"gopkg.in/yaml.v2"
)

// SLOProfiles maps environment name (dev/staging/prod) to its metric
// thresholds, resolved before a run starts.
type SLOProfiles struct {
	Environments map[string]types.SLOProfile `yaml:"environments"`
}

// LoadSLOProfiles reads and validates the per-environment SLO target file
func LoadSLOProfiles(path string) (*SLOProfiles, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: path, Reason: fmt.Sprintf("unable to read SLO profile: %v", err)}
	}
	return ParseSLOProfiles(raw)
}

// ParseSLOProfiles decodes and validates a raw SLO profile document
func ParseSLOProfiles(raw []byte) (*SLOProfiles, error) {
	profiles := SLOProfiles{}
	if err := yaml.UnmarshalStrict(raw, &profiles); err != nil {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Reason: fmt.Sprintf("unable to decode SLO profile: %v", err)}
	}
	if len(profiles.Environments) == 0 {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Reason: "SLO profile contains no environments"}
	}
	for env, profile := range profiles.Environments {
		if err := ValidateProfile(profile); err != nil {
			return nil, stacktrace.Propagate(err, "could not validate SLO profile for environment '%s'", env)
		}
	}
	return &profiles, nil
}

// ResolveThresholds merges the environment's SLO profile with the scenario's
// environment overrides; the scenario value wins per metric.
func ResolveThresholds(s types.ChaosScenario, profiles *SLOProfiles, env string) (types.SLOProfile, error) {
	base, ok := profiles.Environments[env]
	if !ok {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeConfig, Target: env, Reason: "environment not found in SLO profile"}
	}
	resolved := make(types.SLOProfile, len(base))
	for metric, threshold := range base {
		resolved[metric] = threshold
	}
	for metric, threshold := range s.EnvironmentOverrides[env] {
		resolved[metric] = threshold
	}
	return resolved, nil
}
