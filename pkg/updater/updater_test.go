package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataio "github.com/geniass/offers-updater/pkg/io"
	"github.com/geniass/offers-updater/pkg/extract"
	"github.com/geniass/offers-updater/pkg/offers"
	"github.com/geniass/offers-updater/pkg/scraper"
)

const structuredPage = `<!DOCTYPE html>
<html>
<head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Product","offers":{"@type":"Offer","price":"34.95","priceCurrency":"EUR"}}</script>
</head>
<body><p>Op voorraad</p></body>
</html>`

const depositPage = `<!DOCTYPE html>
<html>
<body>
<div class="product-price"><span class="price-current">€1,25</span></div>
</body>
</html>`

var discard = slog.New(slog.DiscardHandler)

func newVendor(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, structuredPage)
	})
	mux.HandleFunc("/deposit", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, depositPage)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newUpdater(t *testing.T) *Updater {
	t.Helper()
	profile, err := extract.LoadProfile("")
	require.NoError(t, err)
	return New(scraper.NewScraper(scraper.Config{}, discard), extract.NewExtractor(profile, discard), "127.0.0.1", discard)
}

func writeStore(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "offers.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runStore(t *testing.T, path string) Summary {
	t.Helper()
	list, err := dataio.Load(path)
	require.NoError(t, err)
	s := newUpdater(t).Run(context.Background(), list)
	require.NoError(t, dataio.Flush(path, list, s.AnyChanged))
	return s
}

func TestRunStructuredPriceChange(t *testing.T) {
	ts := newVendor(t)
	path := writeStore(t, fmt.Sprintf(`[{"url": %q, "price": 30.00}]`, ts.URL+"/x"))

	s := runStore(t, path)

	assert.True(t, s.AnyChanged)
	assert.Equal(t, 1, s.Processed)
	assert.Equal(t, 1, s.Changed)
	assert.Empty(t, s.Failures)
	assert.NotEmpty(t, s.RunID)
	require.Len(t, s.Changes, 1)
	assert.Equal(t, offers.FieldChange{URL: ts.URL + "/x", Field: offers.KeyPrice, Old: "30.00", New: "34.95"}, s.Changes[0])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("[\n  {\n    \"url\": %q,\n    \"price\": 34.95\n  }\n]\n", ts.URL+"/x"), string(data))
}

func TestRunRejectsDepositPrice(t *testing.T) {
	ts := newVendor(t)
	content := fmt.Sprintf(`[{"url": %q, "price": 30.00}]`, ts.URL+"/deposit")
	path := writeStore(t, content)

	s := runStore(t, path)

	assert.False(t, s.AnyChanged)
	assert.Equal(t, 1, s.Processed)
	require.Len(t, s.Failures, 1)
	assert.Equal(t, ts.URL+"/deposit", s.Failures[0].URL)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data), "store must not be rewritten")
}

func TestRunRewritesWholeStoreWhenOneOfferChanges(t *testing.T) {
	ts := newVendor(t)
	unchanged := fmt.Sprintf(`{
    "url": %q,
    "title": "Statiegeld – krat",
    "price": 30.00,
    "extra": {
      "tags": [
        "a&b",
        "<c>"
      ]
    }
  }`, ts.URL+"/deposit")
	path := writeStore(t, fmt.Sprintf("[\n  %s,\n  {\"url\": %q, \"price\": 30.00}\n]", unchanged, ts.URL+"/x"))

	s := runStore(t, path)

	assert.True(t, s.AnyChanged)
	assert.Equal(t, 2, s.Processed)
	assert.Equal(t, 1, s.Changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), unchanged)
	assert.Contains(t, string(data), `"price": 34.95`)

	list, err := dataio.Load(path)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

type fakeFetcher struct {
	pages   map[string]string
	err     error
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*extract.Page, error) {
	f.fetched = append(f.fetched, url)
	if f.err != nil {
		return nil, f.err
	}
	return extract.NewPage(url, []byte(f.pages[url]))
}

func decodeOffers(t *testing.T, urls ...string) []*offers.Offer {
	t.Helper()
	list := make([]*offers.Offer, 0, len(urls))
	for _, u := range urls {
		o := offers.NewOffer(u)
		list = append(list, o)
	}
	return list
}

func newFakeUpdater(t *testing.T, f Fetcher, domain string) *Updater {
	t.Helper()
	profile, err := extract.LoadProfile("")
	require.NoError(t, err)
	return New(f, extract.NewExtractor(profile, discard), domain, discard)
}

func TestRunDomainFilter(t *testing.T) {
	f := &fakeFetcher{}
	list := decodeOffers(t,
		"https://www.drankdozijn.nl/artikel/a",
		"https://drankdozijn.nl/artikel/b",
		"https://DrankDozijn.NL/artikel/c",
		"https://notdrankdozijn.nl/artikel/d",
		"https://drankdozijn.nl.example.com/artikel/e",
		"",
		"::not a url",
	)

	s := newFakeUpdater(t, f, "drankdozijn.nl").Run(context.Background(), list)

	assert.Equal(t, []string{
		"https://www.drankdozijn.nl/artikel/a",
		"https://drankdozijn.nl/artikel/b",
		"https://DrankDozijn.NL/artikel/c",
	}, f.fetched)
	assert.Equal(t, 3, s.Processed)
	assert.Equal(t, 4, s.Skipped)
}

func TestRunFetchErrorLeavesOfferUntouched(t *testing.T) {
	f := &fakeFetcher{err: errors.New("connection refused")}
	list := decodeOffers(t, "https://drankdozijn.nl/a", "https://drankdozijn.nl/b")
	before, err := list[0].MarshalJSON()
	require.NoError(t, err)

	s := newFakeUpdater(t, f, "drankdozijn.nl").Run(context.Background(), list)

	assert.Len(t, f.fetched, 2, "a failure must not abort the run")
	assert.Len(t, s.Failures, 2)
	assert.Equal(t, 0, s.Processed)
	assert.False(t, s.AnyChanged)

	after, err := list[0].MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestRunTitleOnlyPageCountsAsFailure(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://drankdozijn.nl/a": `<h1 class="product-title">Bols Genever</h1>`,
	}}
	list := decodeOffers(t, "https://drankdozijn.nl/a")

	s := newFakeUpdater(t, f, "drankdozijn.nl").Run(context.Background(), list)

	require.Len(t, s.Failures, 1)
	assert.True(t, s.AnyChanged)
	title, ok := list[0].Title()
	require.True(t, ok)
	assert.Equal(t, "Bols Genever", title)
	_, ok = list[0].Price()
	assert.False(t, ok)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	f := &fakeFetcher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newFakeUpdater(t, f, "").Run(ctx, decodeOffers(t, "https://a.example/1", "https://b.example/2"))

	assert.Empty(t, f.fetched)
	assert.Equal(t, 0, s.Processed)
	assert.False(t, s.AnyChanged)
}
