package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckVersionCompatibility checks if engine and algorithm versions are compatible.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
func CheckVersionCompatibility(engineVersion, algorithmVersion string) error {
	// Strip 'v' prefix if present for consistency
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	algorithmVersion = strings.TrimPrefix(algorithmVersion, "v")

	// Skip version check for "main" (development builds)
	if engineVersion == "main" || algorithmVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine version '%s': %w", engineVersion, err)
	}

	algorithmSemver, err := semver.NewVersion(algorithmVersion)
	if err != nil {
		return fmt.Errorf("invalid algorithm version '%s': %w", algorithmVersion, err)
	}

	if engineSemver.Major() != algorithmSemver.Major() {
		return fmt.Errorf("major version mismatch: engine is %d.x.x but algorithm requires %d.x.x",
			engineSemver.Major(), algorithmSemver.Major())
	}

	if engineSemver.Minor() != algorithmSemver.Minor() {
		return fmt.Errorf("minor version mismatch: engine is %d.%d.x but algorithm requires %d.%d.x",
			engineSemver.Major(), engineSemver.Minor(),
			algorithmSemver.Major(), algorithmSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}
