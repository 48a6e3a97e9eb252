package enums

// ImageDimensions buckets an asset by the larger of its width and height.
type ImageDimensions string

const (
	ImageDimensionsSmall       ImageDimensions = "small-image"
	ImageDimensionsMedium      ImageDimensions = "medium-image"
	ImageDimensionsLarge       ImageDimensions = "large-image"
	ImageDimensionsUnavailable ImageDimensions = "unavailable"
)

var validImageDimensions = []ImageDimensions{
	ImageDimensionsSmall,
	ImageDimensionsMedium,
	ImageDimensionsLarge,
	ImageDimensionsUnavailable,
}

// String implements fmt.Stringer.
func (d ImageDimensions) String() string {
	return string(d)
}

// IsValid reports whether the bucket is recognized.
func (d ImageDimensions) IsValid() bool {
	for _, candidate := range validImageDimensions {
		if candidate == d {
			return true
		}
	}
	return false
}
