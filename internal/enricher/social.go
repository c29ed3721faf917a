package enricher

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// platform couples a social network name with its link shape.
type platform struct {
	name    string
	pattern *regexp.Regexp
}

// Evaluated in a fixed order so output is deterministic.
var platforms = []platform{
	{"facebook", regexp.MustCompile(`(?i)facebook\.com/`)},
	{"instagram", regexp.MustCompile(`(?i)instagram\.com/`)},
	{"twitter", regexp.MustCompile(`(?i)(?:twitter\.com|(?:^|\.|//)x\.com)/`)},
	{"linkedin", regexp.MustCompile(`(?i)linkedin\.com/`)},
	{"tiktok", regexp.MustCompile(`(?i)tiktok\.com/`)},
	{"youtube", regexp.MustCompile(`(?i)youtube\.com/`)},
	{"pinterest", regexp.MustCompile(`(?i)pinterest\.com/`)},
	{"yelp", regexp.MustCompile(`(?i)yelp\.com/`)},
}

// Share/referral link shapes that point at the platform, not at the
// business's own profile.
var shareMarkers = []string{
	"sharer",
	"/share",
	"share?",
	"intent/tweet",
	"pin/create",
}

// harvestSocial scans outbound links and keeps the first non-share
// match per known platform. Every platform key is present in the
// result; unmatched platforms map to nil.
func harvestSocial(doc *goquery.Document) map[string]*string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	})

	social := make(map[string]*string, len(platforms))
	for _, p := range platforms {
		social[p.name] = nil
		for _, link := range links {
			if !p.pattern.MatchString(link) || isShareLink(link) {
				continue
			}
			href := link
			social[p.name] = &href
			break
		}
	}
	return social
}

func isShareLink(link string) bool {
	lower := strings.ToLower(link)
	for _, marker := range shareMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
