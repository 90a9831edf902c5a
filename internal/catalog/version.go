package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// versionPattern accepts semantic versions with an optional leading "v",
// an optional release-candidate prerelease and optional build metadata,
// e.g. "1.2.3", "v2.0.0-rc.1", "3.8.0+red.2".
var versionPattern = regexp.MustCompile(
	`^v?(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-rc\.(0|[1-9]\d*))?(?:\+([0-9A-Za-z.-]+))?$`)

// Version is a parsed release version identifier.
type Version struct {
	Major int
	Minor int
	Patch int
	// RC is the release-candidate number; -1 means a final release.
	RC int
	// Meta is build metadata. It is carried for display but ignored for ordering.
	Meta string
}

// ParseVersion parses a version identifier. The raw identifier (including
// any "v" prefix) stays the catalog key; Version only drives ordering.
func ParseVersion(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version identifier %q", s)
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	rc := -1
	if m[4] != "" {
		rc, _ = strconv.Atoi(m[4])
	}
	return Version{Major: major, Minor: minor, Patch: patch, RC: rc, Meta: m[5]}, nil
}

// Compare returns -1, 0 or 1 ordering v against o.
// Final releases sort above their release candidates.
func (v Version) Compare(o Version) int {
	if c := compareInt(v.Major, o.Major); c != 0 {
		return c
	}
	if c := compareInt(v.Minor, o.Minor); c != 0 {
		return c
	}
	if c := compareInt(v.Patch, o.Patch); c != 0 {
		return c
	}
	switch {
	case v.RC == o.RC:
		return 0
	case v.RC < 0:
		return 1
	case o.RC < 0:
		return -1
	default:
		return compareInt(v.RC, o.RC)
	}
}

// String reassembles the canonical form without the "v" prefix.
func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.RC >= 0 {
		fmt.Fprintf(&b, "-rc.%d", v.RC)
	}
	if v.Meta != "" {
		b.WriteByte('+')
		b.WriteString(v.Meta)
	}
	return b.String()
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
