package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/placescout/placescout/internal/scout"
)

// Long-tail extraction that does not fit the scalar rule table: lists,
// tables, and grouped attributes.

const (
	maxPhotos         = 10
	maxOwnerResponses = 3
	maxBookingLinks   = 5
)

var serviceOptionLabels = []string{
	"Dine-in", "Takeout", "Delivery", "Drive-through", "Curbside pickup",
}

var amenityLabels = []string{
	"Restroom", "Wi-Fi", "Free Wi-Fi", "Good for kids", "High chairs",
}

var accessibilityLabels = []string{
	"Wheelchair accessible entrance",
	"Wheelchair accessible seating",
	"Wheelchair accessible restroom",
	"Wheelchair accessible parking lot",
}

func extractCategories(pc *pageContext) []string {
	var categories []string
	seen := make(map[string]struct{})
	pc.doc.Find(`button[jsaction*="category"]`).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		categories = append(categories, text)
	})
	return categories
}

func extractVerified(pc *pageContext) bool {
	if pc.doc.Find(`img[alt*="Verified"]`).Length() > 0 {
		return true
	}
	return pc.doc.Find(`[aria-label*="Verified"]`).Length() > 0
}

// extractOpeningHours reads the day→hours table, trying the aria
// labeled table first, then the class-based fallback.
func extractOpeningHours(pc *pageContext) map[string]string {
	hours := make(map[string]string)

	readRows := func(rows *goquery.Selection) {
		rows.Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("th, td")
			if cells.Length() < 2 {
				return
			}
			day := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
			times := strings.TrimSpace(cells.Eq(1).Text())
			if day != "" && times != "" {
				hours[day] = times
			}
		})
	}

	readRows(pc.doc.Find(`table[aria-label*="Hours"] tr`))
	if len(hours) == 0 {
		readRows(pc.doc.Find(`table.eK4R0e tr`))
	}
	if len(hours) == 0 {
		readRows(pc.doc.Find(`[jsaction*="openhours"] tr`))
	}
	if len(hours) == 0 {
		return nil
	}
	return hours
}

func applyClosedFlags(rec *scout.EntityRecord, pc *pageContext) {
	status := ""
	if rec.LiveStatus != nil {
		status = strings.ToLower(*rec.LiveStatus)
	}
	rec.PermanentlyClosed = strings.Contains(status, "permanently closed")
	rec.TemporarilyClosed = strings.Contains(status, "temporarily closed")
	rec.ClaimThisBusiness = pc.doc.Find(`[aria-label*="Claim"]`).Length() > 0 ||
		strings.Contains(pc.bodyText, "Claim this business")
}

var digitRun = regexp.MustCompile(`\d+`)

func extractPhotos(pc *pageContext) ([]string, *int) {
	var photos []string
	pc.doc.Find(`button[jsaction*="pane.image"] img`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if ok && strings.HasPrefix(src, "http") && !strings.Contains(src, "gstatic") {
			photos = append(photos, src)
		}
		return len(photos) < maxPhotos
	})

	if label, ok := pc.doc.Find(`[aria-label*="photos"]`).First().Attr("aria-label"); ok {
		if m := digitRun.FindString(strings.ReplaceAll(label, ",", "")); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				return photos, &n
			}
		}
	}
	if len(photos) > 0 {
		n := len(photos)
		return photos, &n
	}
	return nil, nil
}

func extractOwnerResponses(pc *pageContext) []string {
	var responses []string
	pc.doc.Find(`[jsaction="pane.review.owner"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			responses = append(responses, text)
		}
		return len(responses) < maxOwnerResponses
	})
	return responses
}

var styleHeight = regexp.MustCompile(`height:\s*(\d+)`)

// extractPopularTimes decodes the busy-by-hour histogram bars. Bars are
// laid out as 24 per day starting on Sunday.
func extractPopularTimes(pc *pageContext) map[string][]scout.HourBusy {
	days := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	popular := make(map[string][]scout.HourBusy)

	pc.doc.Find(`[jsaction*="populartimes"] [role="img"]`).Each(func(i int, sel *goquery.Selection) {
		dayIdx := i / 24
		if dayIdx >= len(days) {
			return
		}
		busy := 0
		if style, ok := sel.Attr("style"); ok {
			if m := styleHeight.FindStringSubmatch(style); m != nil {
				busy, _ = strconv.Atoi(m[1])
			}
		}
		day := days[dayIdx]
		popular[day] = append(popular[day], scout.HourBusy{Hour: i % 24, Busy: busy})
	})

	if len(popular) == 0 {
		return nil
	}
	return popular
}

// extractAttributeGroup checks each known label for presence in the
// page text. Crude, but matches how the attribute chips render.
func extractAttributeGroup(pc *pageContext, labels []string) map[string]bool {
	group := make(map[string]bool)
	for _, label := range labels {
		if strings.Contains(pc.bodyText, label) {
			group[label] = true
		}
	}
	if len(group) == 0 {
		return nil
	}
	return group
}

func extractAccessibility(pc *pageContext) map[string]bool {
	group := extractAttributeGroup(pc, accessibilityLabels)
	pc.doc.Find(`[aria-label*="Wheelchair"]`).Each(func(_ int, sel *goquery.Selection) {
		if label, ok := sel.Attr("aria-label"); ok && label != "" {
			if group == nil {
				group = make(map[string]bool)
			}
			group[label] = true
		}
	})
	return group
}

func extractBookingLinks(pc *pageContext) []scout.BookingLink {
	var links []scout.BookingLink
	seen := make(map[string]struct{})
	pc.doc.Find(`a[href*="order"], a[href*="book"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			text, _ = sel.Attr("aria-label")
		}
		if text == "" {
			return true
		}
		if _, dup := seen[href]; dup {
			return true
		}
		seen[href] = struct{}{}
		links = append(links, scout.BookingLink{Text: text, URL: href})
		return len(links) < maxBookingLinks
	})
	return links
}

func extractReviewTags(pc *pageContext) []string {
	var tags []string
	pc.doc.Find(`div.lMbq3e button[aria-label]`).Each(func(_ int, sel *goquery.Selection) {
		if label, ok := sel.Attr("aria-label"); ok && label != "" {
			tags = append(tags, label)
		}
	})
	return tags
}

func extractPeopleAlsoSearch(pc *pageContext) []string {
	var names []string
	pc.doc.Find(`div.rllt__link a`).Each(func(_ int, sel *goquery.Selection) {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			names = append(names, name)
		}
	})
	return names
}

func metaCoords(pc *pageContext, latSel, lngSel string) *scout.LatLng {
	latStr, okLat := pc.doc.Find(latSel).First().Attr("content")
	lngStr, okLng := pc.doc.Find(lngSel).First().Attr("content")
	if !okLat || !okLng {
		return nil
	}
	return parseLatLng(latStr, lngStr)
}

func dataAttrCoords(pc *pageContext) *scout.LatLng {
	node := pc.doc.Find(`[data-lat][data-lng]`).First()
	latStr, okLat := node.Attr("data-lat")
	lngStr, okLng := node.Attr("data-lng")
	if !okLat || !okLng {
		return nil
	}
	return parseLatLng(latStr, lngStr)
}

func parseLatLng(latStr, lngStr string) *scout.LatLng {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if errLat != nil || errLng != nil {
		return nil
	}
	return &scout.LatLng{Lat: lat, Lng: lng}
}
