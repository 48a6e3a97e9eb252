package batch

import (
	"path"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/internal/intake"
	"github.com/brightstock/imagery-backend/pkg/enums"
)

// Dimension buckets split on the larger side of the asset.
const (
	smallImageMaxPx  = 1000
	mediumImageMaxPx = 2000
)

// DraftFromFile derives a draft listing with defaulted fields from a
// registered intake file.
func DraftFromFile(file intake.File, currency enums.Currency) DraftListing {
	return DraftListing{
		ID:         file.ID,
		Name:       file.FileName,
		Title:      titleFromFileName(file.FileName),
		Usage:      enums.UsageEditorial,
		Releases:   enums.ReleasesNone,
		Price:      decimal.Zero,
		Currency:   currency,
		Dimensions: bucketDimensions(file.Width, file.Height),
		MimeType:   file.MimeType,
		PreviewURL: file.PreviewURL,
		UploadURL:  file.UploadURL,
	}
}

// bucketDimensions classifies by the larger of width and height.
func bucketDimensions(width, height *int) enums.ImageDimensions {
	if width == nil || height == nil {
		return enums.ImageDimensionsUnavailable
	}
	larger := *width
	if *height > larger {
		larger = *height
	}
	switch {
	case larger <= 0:
		return enums.ImageDimensionsUnavailable
	case larger <= smallImageMaxPx:
		return enums.ImageDimensionsSmall
	case larger <= mediumImageMaxPx:
		return enums.ImageDimensionsMedium
	default:
		return enums.ImageDimensionsLarge
	}
}

func titleFromFileName(name string) string {
	base := path.Base(strings.TrimSpace(name))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}

// listingCategory resolves the top-level category assigned at commit
// time. AI content takes precedence over the mime-derived category.
func listingCategory(listing DraftListing) enums.ListingCategory {
	isVideo := strings.HasPrefix(listing.MimeType, "video/")
	switch {
	case listing.IsAI && isVideo:
		return enums.ListingCategoryAIVideo
	case listing.IsAI:
		return enums.ListingCategoryAIImage
	case isVideo:
		return enums.ListingCategoryVideos
	case strings.Contains(listing.MimeType, "svg"):
		return enums.ListingCategoryIllustrations
	default:
		return enums.ListingCategoryPhotos
	}
}
