package enums

// Releases states whether model/property releases back an asset.
type Releases string

const (
	ReleasesNone Releases = "no-release"
	ReleasesHeld Releases = "has-releases"
)

// String implements fmt.Stringer.
func (r Releases) String() string {
	return string(r)
}

// IsValid reports whether the releases value is recognized.
func (r Releases) IsValid() bool {
	switch r {
	case ReleasesNone, ReleasesHeld:
		return true
	default:
		return false
	}
}
