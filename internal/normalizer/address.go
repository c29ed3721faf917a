package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/placescout/placescout/internal/scout"
)

// AddressParts is the comma-split decomposition of a full address.
// Components that do not match their expected shape stay nil rather
// than being guessed; the heuristics are tuned to US-style addresses.
type AddressParts struct {
	Street     *string
	City       *string
	State      *string
	PostalCode *string
	Country    *string
}

// statePostal matches "two-letter state code + numeric postal code",
// optionally with a ZIP+4 suffix.
var statePostal = regexp.MustCompile(`^([A-Z]{2})\s+(\d{4,6}(?:-\d{4})?)$`)

// ParseAddress splits a raw address string on commas into components.
func ParseAddress(full string) AddressParts {
	var parts AddressParts
	full = strings.TrimSpace(full)
	if full == "" {
		return parts
	}

	segments := strings.Split(full, ",")
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
	}

	if len(segments) > 0 && segments[0] != "" {
		parts.Street = &segments[0]
	}
	if len(segments) > 1 && segments[1] != "" {
		parts.City = &segments[1]
	}
	if len(segments) > 2 {
		if m := statePostal.FindStringSubmatch(segments[2]); m != nil {
			parts.State = &m[1]
			parts.PostalCode = &m[2]
		}
	}
	if len(segments) > 3 && segments[3] != "" {
		parts.Country = &segments[3]
	}
	return parts
}

// Positional URL encodings tried in priority order: the data-blob
// !3d/!4d pair pins the place itself, while the @lat,lng token is only
// the viewport center.
var (
	bangCoords = regexp.MustCompile(`!3d(-?\d+\.\d+)!4d(-?\d+\.\d+)`)
	atCoords   = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`)
)

// ParseLatLngFromURL extracts coordinates from a resolved place URL.
// Returns nil when no known positional encoding matches.
func ParseLatLngFromURL(raw string) *scout.LatLng {
	for _, re := range []*regexp.Regexp{bangCoords, atCoords} {
		if m := re.FindStringSubmatch(raw); m != nil {
			lat, errLat := strconv.ParseFloat(m[1], 64)
			lng, errLng := strconv.ParseFloat(m[2], 64)
			if errLat == nil && errLng == nil {
				return &scout.LatLng{Lat: lat, Lng: lng}
			}
		}
	}
	return nil
}
