// Package schemaspec resolves and validates a design file's
// autoware_system_design_format against the JSON Schema bundled for its
// entity kind, and layers the semantic checks JSON Schema cannot express
// (spec.md §4.B).
package schemaspec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/davidthor/asdesigner/pkg/errors"
)

// SupportedFormatVersion is the format version this build of the tool was
// written against. Its major component is the hard compatibility gate.
const SupportedFormatVersion = "1.1.0"

// Version is a parsed "MAJOR.MINOR.PATCH" format version string.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

var versionPattern = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)$`)

// ParseVersion parses "MAJOR.MINOR.PATCH", tolerating a leading "v".
func ParseVersion(raw string) (Version, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Version{}, errors.New(errors.ErrCodeFormatVersion, fmt.Sprintf("invalid format version string: %q, expected MAJOR.MINOR.PATCH", raw))
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	return Version{Major: major, Minor: minor, Patch: patch}, nil
}

func supportedVersion() Version {
	v, err := ParseVersion(SupportedFormatVersion)
	if err != nil {
		panic(err) // SupportedFormatVersion is a build-time constant
	}
	return v
}

// VersionCheck is the outcome of comparing a file's declared format version
// against the version this build supports.
type VersionCheck struct {
	Compatible bool
	MinorNewer bool
	Message    string
	FileVer    *Version
}

// CheckFormatVersion implements spec.md §4.B's declared-version rules:
// missing → warning; major mismatch → hard error; minor newer → warning.
func CheckFormatVersion(filePath, raw string) (VersionCheck, error) {
	supported := supportedVersion()

	if raw == "" {
		return VersionCheck{
			Compatible: true,
			Message:    fmt.Sprintf("missing autoware_system_design_format; assuming %s", supported),
		}, nil
	}

	fileVer, err := ParseVersion(raw)
	if err != nil {
		return VersionCheck{}, err
	}

	if fileVer.Major != supported.Major {
		return VersionCheck{}, errors.FormatVersionError(filePath, fileVer.String(), strconv.Itoa(supported.Major))
	}

	if fileVer.Minor > supported.Minor {
		return VersionCheck{
			Compatible: true,
			MinorNewer: true,
			FileVer:    &fileVer,
			Message:    fmt.Sprintf("%s declares format %s, newer minor than supported %s; some features may not be recognized", filePath, fileVer, supported),
		}, nil
	}

	return VersionCheck{Compatible: true, FileVer: &fileVer}, nil
}
