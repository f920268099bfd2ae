package updates

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// NormalizeVersion strips any leading non-numeric prefix such as "v"
// or "release-" from a version string.
func NormalizeVersion(v string) string {
	return strings.TrimLeftFunc(strings.TrimSpace(v), func(r rune) bool {
		return r < '0' || r > '9'
	})
}

// CompareVersions compares two version strings semantically.
// Returns:
// - -1 if v1 < v2
// - 0 if v1 == v2
// - 1 if v1 > v2
// - error if either version string is invalid
func CompareVersions(v1, v2 string) (int, error) {
	version1, err := semver.NewVersion(NormalizeVersion(v1))
	if err != nil {
		return 0, fmt.Errorf("invalid version %s: %w", v1, err)
	}

	version2, err := semver.NewVersion(NormalizeVersion(v2))
	if err != nil {
		return 0, fmt.Errorf("invalid version %s: %w", v2, err)
	}

	return version1.Compare(version2), nil
}

// IsNewerVersion checks if v2 is newer than v1.
func IsNewerVersion(v1, v2 string) (bool, error) {
	comparison, err := CompareVersions(v1, v2)
	if err != nil {
		return false, err
	}
	return comparison < 0, nil
}

// IsValidVersion checks if a version string is a valid semantic version.
func IsValidVersion(version string) bool {
	_, err := semver.NewVersion(NormalizeVersion(version))
	return err == nil
}
