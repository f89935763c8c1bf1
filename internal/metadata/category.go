package metadata

import "strings"

// Category is the coarse kind of a media file, used to decide which tags
// are desired on top of the required set.
type Category string

const (
	Audio Category = "audio"
	Video Category = "video"
	Image Category = "image"
)

// Categories lists every known category.
func Categories() []Category { return []Category{Audio, Video, Image} }

// ParseCategory maps a category name, or the primary component of a MIME
// type such as "audio/mpeg", onto a Category. Unknown names report false.
func ParseCategory(name string) (Category, bool) {
	primary, _, _ := strings.Cut(name, "/")
	switch cat := Category(strings.ToLower(strings.TrimSpace(primary))); cat {
	case Audio, Video, Image:
		return cat, true
	default:
		return "", false
	}
}
