package enums

// ListingCategory is the top-level category assigned at commit time.
type ListingCategory string

const (
	ListingCategoryPhotos        ListingCategory = "photos"
	ListingCategoryVideos        ListingCategory = "videos"
	ListingCategoryIllustrations ListingCategory = "illustrations"
	ListingCategoryAIImage       ListingCategory = "ai-image"
	ListingCategoryAIVideo       ListingCategory = "ai-video"
)

// String implements fmt.Stringer.
func (c ListingCategory) String() string {
	return string(c)
}
