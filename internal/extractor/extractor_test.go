package extractor

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/placescout/placescout/internal/scout"
)

const placeURL = "https://www.google.com/maps/place/Acme+Coffee/" +
	"@39.7817,-89.6501,17z/data=!3d39.7817132!4d-89.6501481!1sChIJabcDEF123!4s0x880bd5a0:0x1f2e3d4c"

const placePage = `<html>
<head><meta property="og:url" content="https://maps.example/g/11abcd"></head>
<body>
  <h1 class="DUwDvf">Acme Coffee</h1>
  <button jsaction="pane.rating.category">Coffee shop</button>
  <div class="F7nice">
    <span aria-hidden="true">4.5</span>
    <button aria-label="123 reviews">(123)</button>
  </div>
  <span aria-label="Price: $$">$$</span>
  <img alt="Verified business">
  <span class="ZDu9vd"><span>Open now</span></span>
  <button data-item-id="address"><div class="Io6YTe">100 Main St, Springfield, IL 62704, USA</div></button>
  <button data-item-id="phone:tel"><div class="Io6YTe">(555) 123-4567</div></button>
  <a data-item-id="authority" href="https://acme.example">acme.example</a>
  <table aria-label="Hours of operation">
    <tr><th>Monday</th><td>9 AM to 5 PM</td></tr>
    <tr><th>Tuesday</th><td>9 AM to 5 PM</td></tr>
  </table>
  <button jsaction="pane.image.view"><img src="https://photos.example/1.jpg"></button>
  <button jsaction="pane.image.view"><img src="https://gstatic.example/sprite.png"></button>
  <button aria-label="42 photos"></button>
  <div>Dine-in available, Takeout too. Free Wi-Fi.</div>
  <div aria-label="Wheelchair accessible entrance"></div>
</body>
</html>`

type fakeSession struct {
	html   string
	loc    string
	navErr error
}

func (f *fakeSession) Navigate(_ context.Context, url string, _ time.Duration) (string, error) {
	if f.navErr != nil {
		return "", f.navErr
	}
	if f.loc != "" {
		return f.loc, nil
	}
	return url, nil
}

func (f *fakeSession) HTML(context.Context) (string, error)     { return f.html, nil }
func (f *fakeSession) Location(context.Context) (string, error) { return f.loc, nil }
func (f *fakeSession) ScrollToBottom(context.Context, string) error {
	return nil
}

func populateFixture(t *testing.T, level DetailLevel) *scout.EntityRecord {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(placePage))
	require.NoError(t, err)

	e := New(Config{DetailLevel: level}, nil)
	rec := &scout.EntityRecord{Rank: 1, PlaceURL: placeURL}
	e.Populate(rec, doc, placeURL)
	return rec
}

func TestPopulate_CoreFields(t *testing.T) {
	t.Parallel()

	rec := populateFixture(t, DetailFull)

	require.Equal(t, "Acme Coffee", *rec.Name)
	require.Equal(t, "Coffee shop", *rec.MainCategory)
	require.Equal(t, []string{"Coffee shop"}, rec.Categories)
	require.InDelta(t, 4.5, *rec.Rating, 1e-9)
	require.Equal(t, 123, *rec.ReviewsCount)
	require.Equal(t, "$$", *rec.PriceLevel)
	require.True(t, rec.Verified)
	require.Equal(t, "Open now", *rec.LiveStatus)

	require.Equal(t, "100 Main St, Springfield, IL 62704, USA", *rec.FullAddress)
	require.Equal(t, "100 Main St", *rec.Street)
	require.Equal(t, "Springfield", *rec.City)
	require.Equal(t, "IL", *rec.State)
	require.Equal(t, "62704", *rec.PostalCode)
	require.Equal(t, "USA", *rec.Country)

	require.Equal(t, "(555) 123-4567", *rec.Phone)
	require.Equal(t, "https://acme.example", *rec.Website)

	require.Equal(t, map[string]string{
		"monday":  "9 AM to 5 PM",
		"tuesday": "9 AM to 5 PM",
	}, rec.OpeningHours)

	require.Equal(t, "ChIJabcDEF123", *rec.PlaceID)
	require.Equal(t, "0x1f2e3d4c", *rec.CID)
	require.Equal(t, "/g/11abcd", *rec.KGMID)

	require.NotNil(t, rec.Location)
	require.InDelta(t, 39.7817132, rec.Location.Lat, 1e-9)
	require.InDelta(t, -89.6501481, rec.Location.Lng, 1e-9)
}

func TestPopulate_DetailFullLongTail(t *testing.T) {
	t.Parallel()

	rec := populateFixture(t, DetailFull)

	require.Equal(t, []string{"https://photos.example/1.jpg"}, rec.Photos)
	require.Equal(t, 42, *rec.PhotoCount)
	require.True(t, rec.ServiceOptions["Dine-in"])
	require.True(t, rec.ServiceOptions["Takeout"])
	require.True(t, rec.Amenities["Free Wi-Fi"])
	require.True(t, rec.Accessibility["Wheelchair accessible entrance"])
}

func TestPopulate_DetailBasicSkipsLongTail(t *testing.T) {
	t.Parallel()

	rec := populateFixture(t, DetailBasic)

	require.Nil(t, rec.Photos)
	require.Nil(t, rec.PhotoCount)
	require.Nil(t, rec.ServiceOptions)
	require.Nil(t, rec.Amenities)
	// Core fields still resolve at basic detail.
	require.Equal(t, "Acme Coffee", *rec.Name)
	require.NotNil(t, rec.OpeningHours)
}

func TestPopulate_UnresolvedFieldsStayNull(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><p>nothing here</p></body></html>`))
	require.NoError(t, err)

	e := New(Config{}, nil)
	rec := &scout.EntityRecord{Rank: 1}
	e.Populate(rec, doc, "https://maps.example/maps/place/empty")

	require.Nil(t, rec.Name)
	require.Nil(t, rec.Rating)
	require.Nil(t, rec.FullAddress)
	require.Nil(t, rec.Phone)
	require.Nil(t, rec.Website)
	require.Nil(t, rec.Location)
	require.Nil(t, rec.OpeningHours)
	require.False(t, rec.Verified)
}

func TestPopulate_FallbackStrategyWins(t *testing.T) {
	t.Parallel()

	// No .Io6YTe node; the aria-label fallback must resolve the address.
	page := `<html><body>
	  <button data-item-id="address" aria-label="Address: 7 Side Rd, Shelbyville, IL 62565, USA"></button>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	e := New(Config{}, nil)
	rec := &scout.EntityRecord{}
	e.Populate(rec, doc, "https://maps.example/maps/place/x")

	require.Equal(t, "7 Side Rd, Shelbyville, IL 62565, USA", *rec.FullAddress)
	require.Equal(t, "Shelbyville", *rec.City)
}

func TestPopulate_CoordinateFallbacks(t *testing.T) {
	t.Parallel()

	e := New(Config{}, nil)

	t.Run("meta tags", func(t *testing.T) {
		t.Parallel()
		page := `<html><head>
		  <meta itemprop="latitude" content="41.88">
		  <meta itemprop="longitude" content="-87.63">
		</head><body></body></html>`
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
		require.NoError(t, err)

		rec := &scout.EntityRecord{}
		e.Populate(rec, doc, "https://maps.example/maps/place/no-coords")
		require.NotNil(t, rec.Location)
		require.InDelta(t, 41.88, rec.Location.Lat, 1e-9)
	})

	t.Run("data attributes", func(t *testing.T) {
		t.Parallel()
		page := `<html><body><div data-lat="35.68" data-lng="139.69"></div></body></html>`
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
		require.NoError(t, err)

		rec := &scout.EntityRecord{}
		e.Populate(rec, doc, "https://maps.example/maps/place/no-coords")
		require.NotNil(t, rec.Location)
		require.InDelta(t, 139.69, rec.Location.Lng, 1e-9)
	})

	t.Run("url wins over metadata", func(t *testing.T) {
		t.Parallel()
		page := `<html><head><meta itemprop="latitude" content="1.0"><meta itemprop="longitude" content="2.0"></head><body></body></html>`
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
		require.NoError(t, err)

		rec := &scout.EntityRecord{}
		e.Populate(rec, doc, "https://maps.example/maps/place/x/@39.78,-89.65,15z")
		require.InDelta(t, 39.78, rec.Location.Lat, 1e-9)
	})
}

func TestPopulate_IsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := json.Marshal(populateFixture(t, DetailFull))
	require.NoError(t, err)
	second, err := json.Marshal(populateFixture(t, DetailFull))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestExtract_NavigationErrorPropagates(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{navErr: &scout.NavigationError{URL: "x", Err: context.DeadlineExceeded}}
	e := New(Config{SettleDelay: time.Millisecond}, nil)

	_, err := e.Extract(context.Background(), sess, scout.CandidateRef{CanonicalURL: "https://maps.example/maps/place/x", Rank: 1}, "coffee")
	require.Error(t, err)
	require.True(t, scout.IsNavigationTimeout(err))
}

func TestExtract_MarksDetailedOnceLoaded(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{html: placePage, loc: placeURL}
	e := New(Config{SettleDelay: time.Millisecond}, nil)

	rec, err := e.Extract(context.Background(), sess, scout.CandidateRef{CanonicalURL: placeURL, Rank: 3}, "coffee springfield")
	require.NoError(t, err)
	require.True(t, rec.HasDetailedData)
	require.Equal(t, 3, rec.Rank)
	require.Equal(t, "coffee springfield", rec.SearchQuery)
	require.Equal(t, "Acme Coffee", *rec.Name)
}
