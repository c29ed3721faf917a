package scout

import "encoding/json"

// EntityRecord is the flat, stable-schema record produced for one entity.
// Unresolved fields are explicitly null rather than omitted so that
// downstream consumers always see the full shape.
type EntityRecord struct {
	// Provenance.
	Rank            int    `json:"rank"`
	PlaceURL        string `json:"placeUrl"`
	SearchQuery     string `json:"searchQuery"`
	HasDetailedData bool   `json:"hasDetailedData"`
	Error           string `json:"error,omitempty"`

	// Identity.
	Name         *string  `json:"name"`
	MainCategory *string  `json:"mainCategory"`
	Categories   []string `json:"categories"`
	PriceLevel   *string  `json:"priceLevel"`
	Verified     bool     `json:"verified"`

	// Location.
	FullAddress  *string `json:"fullAddress"`
	Street       *string `json:"street"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	PostalCode   *string `json:"postalCode"`
	Country      *string `json:"country"`
	Neighborhood *string `json:"neighborhood"`
	Location     *LatLng `json:"location"`

	// Contact.
	Phone            *string `json:"phone"`
	PhoneUnformatted *string `json:"phoneUnformatted"`
	Website          *string `json:"website"`

	// Status.
	LiveStatus        *string `json:"liveStatus"`
	PermanentlyClosed bool    `json:"permanentlyClosed"`
	TemporarilyClosed bool    `json:"temporarilyClosed"`
	ClaimThisBusiness bool    `json:"claimThisBusiness"`

	// Temporal.
	OpeningHours map[string]string `json:"openingHours"`

	// Engagement.
	Rating         *float64              `json:"rating"`
	ReviewsCount   *int                  `json:"reviewsCount"`
	PhotoCount     *int                  `json:"photoCount"`
	Photos         []string              `json:"photos"`
	OwnerResponses []string              `json:"ownerResponses"`
	PopularTimes   map[string][]HourBusy `json:"popularTimes"`

	// Attribute groups.
	ServiceOptions map[string]bool `json:"serviceOptions"`
	Accessibility  map[string]bool `json:"accessibility"`
	Amenities      map[string]bool `json:"amenities"`

	// Secondary page content.
	ReviewTags       []string      `json:"reviewTags"`
	PeopleAlsoSearch []string      `json:"peopleAlsoSearch"`
	MenuURL          *string       `json:"menuUrl"`
	ReservationURL   *string       `json:"reservationUrl"`
	BookingLinks     []BookingLink `json:"bookingLinks"`

	// External identifiers.
	PlaceID *string `json:"placeId"`
	CID     *string `json:"cid"`
	KGMID   *string `json:"kgmid"`

	// Website enrichment.
	Emails         []string           `json:"emails"`
	Social         map[string]*string `json:"social"`
	StructuredData []json.RawMessage  `json:"structuredData"`
	About          *string            `json:"about"`
	Founder        *string            `json:"founder"`
	YearFounded    *int               `json:"yearFounded"`

	// Derived.
	PhoneType      *string `json:"phoneType"`
	EmailValid     bool    `json:"emailValid"`
	HasWebsite     bool    `json:"hasWebsite"`
	HasSocialMedia bool    `json:"hasSocialMedia"`
	Summary        string  `json:"summary"`
}

// Enrichment holds the fields harvested from an entity's external website.
type Enrichment struct {
	Emails         []string           `json:"emails"`
	Social         map[string]*string `json:"social"`
	StructuredData []json.RawMessage  `json:"structuredData"`
	About          *string            `json:"about"`
	Founder        *string            `json:"founder"`
	YearFounded    *int               `json:"yearFounded"`
}

// Merge copies enrichment output into the record. Existing values are
// never overwritten with empty ones.
func (r *EntityRecord) Merge(e Enrichment) {
	if len(e.Emails) > 0 {
		r.Emails = e.Emails
	}
	if len(e.Social) > 0 {
		r.Social = e.Social
	}
	if len(e.StructuredData) > 0 {
		r.StructuredData = e.StructuredData
	}
	if e.About != nil {
		r.About = e.About
	}
	if e.Founder != nil {
		r.Founder = e.Founder
	}
	if e.YearFounded != nil {
		r.YearFounded = e.YearFounded
	}
}
