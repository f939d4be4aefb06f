package bookstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/bookstore/api"
	"github.com/eringen/bookstore/model"
	"github.com/eringen/bookstore/store"
)

const (
	searchForm = "/search/items/1"
	cartForm   = "/cart/items/1"
	showCart   = "/cart/items/2"
	bookForm   = "/book/items/1"
	surveyForm = "/survey/items/1"
)

func newTestApp(t *testing.T) (*App, *httptest.Server) {
	t.Helper()
	var a *App
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.Echo.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	a = New(Config{
		URL:           srv.URL,
		APIURL:        srv.URL + "/api",
		SessionSecret: "test-secret",
		CoversDir:     t.TempDir(),
	}, WithStorage(store.NewMemory()), WithStaticDir(t.TempDir()))
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(func() { a.Close() })
	return a, srv
}

func addBook(t *testing.T, a *App, isbn, title string) {
	t.Helper()
	_, err := a.Model.AddBook(context.Background(), model.Values{
		"isbn":      isbn,
		"title":     title,
		"authors":   "Alan Donovan;Brian Kernighan",
		"publisher": "Addison-Wesley",
		"year":      2015,
		"pages":     380,
	})
	require.NoError(t, err)
}

// browser is a cookie-keeping client holding the CSRF token of its
// first page view.
type browser struct {
	t     *testing.T
	srv   *httptest.Server
	http  *http.Client
	token string
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	b := &browser{t: t, srv: srv, http: &http.Client{Jar: jar}}

	status, _ := b.get("/?ref=search")
	require.Equal(t, http.StatusOK, status)
	u, _ := url.Parse(srv.URL)
	for _, c := range jar.Cookies(u) {
		if c.Name == "_csrf" {
			b.token = c.Value
		}
	}
	require.NotEmpty(t, b.token, "no csrf cookie")
	return b
}

func (b *browser) get(path string) (int, string) {
	b.t.Helper()
	resp, err := b.http.Get(b.srv.URL + path)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.StatusCode, string(body)
}

func (b *browser) submit(formID string, fields url.Values) (int, string) {
	b.t.Helper()
	if fields == nil {
		fields = url.Values{}
	}
	fields.Set("_csrf", b.token)
	resp, err := b.http.PostForm(b.srv.URL+"/submit?path="+url.QueryEscape(formID), fields)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.StatusCode, string(body)
}

func TestPageRendersDefaultRef(t *testing.T) {
	_, srv := newTestApp(t)
	b := newBrowser(t, srv)

	status, body := b.get("/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<title>Bookstore</title>")
	assert.Contains(t, body, "Choose an activity")
	assert.Contains(t, body, `href="?ref=search"`)
}

func TestPageRendersRef(t *testing.T) {
	_, srv := newTestApp(t)
	b := newBrowser(t, srv)

	status, body := b.get("/?ref=search")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<title>Bookstore - Search</title>")
	assert.Contains(t, body, `id="`+searchForm+`"`)
	assert.Contains(t, body, `name="_csrf" type="hidden" value="`+b.token+`"`)
}

func TestUnknownRefIsNotFound(t *testing.T) {
	_, srv := newTestApp(t)
	b := newBrowser(t, srv)

	status, body := b.get("/?ref=nowhere")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Not Found")
}

func TestSubmitWithoutTokenIsForbidden(t *testing.T) {
	_, srv := newTestApp(t)

	resp, err := http.PostForm(srv.URL+"/submit?path="+url.QueryEscape(searchForm), url.Values{"isbn": {"0134190440"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSubmitRejectsNonFormPath(t *testing.T) {
	_, srv := newTestApp(t)
	b := newBrowser(t, srv)

	status, _ := b.submit("/search/items/0", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSubmitMissingRequired(t *testing.T) {
	_, srv := newTestApp(t)
	b := newBrowser(t, srv)

	status, body := b.submit(cartForm, url.Values{"sku": {""}, "nUnits": {"2"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "The field ISBN must be specified.")
	assert.Contains(t, body, "Please correct the errors below.")
	assert.Contains(t, body, `value="2"`)
}

func TestSubmitAddAndFindBook(t *testing.T) {
	_, srv := newTestApp(t)
	b := newBrowser(t, srv)

	status, body := b.submit(bookForm, url.Values{
		"isbn":      {"0134190440"},
		"title":     {"The Go Programming Language"},
		"authors":   {"Alan Donovan;Brian Kernighan"},
		"publisher": {"Addison-Wesley"},
		"year":      {"2015"},
		"pages":     {"380"},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Book 0134190440 saved")

	status, body = b.submit(searchForm, url.Values{"authorsTitleSearch": {"kernighan"}, "_count": {"5"}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "1 book found")
	assert.Contains(t, body, "The Go Programming Language by Alan Donovan, Brian Kernighan (ISBN 0134190440)")
}

func TestSubmitShowsAPIErrors(t *testing.T) {
	_, srv := newTestApp(t)
	b := newBrowser(t, srv)

	status, body := b.submit(bookForm, url.Values{
		"isbn":      {"0134190440"},
		"title":     {"The Go Programming Language"},
		"authors":   {"Alan Donovan"},
		"publisher": {"Addison-Wesley"},
		"year":      {"1200"},
		"pages":     {"380"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Please correct the errors below.")
	assert.Contains(t, body, "must be between 1448 and")
}

func TestSubmitCartKeepsSession(t *testing.T) {
	a, srv := newTestApp(t)
	addBook(t, a, "0134190440", "The Go Programming Language")
	b := newBrowser(t, srv)

	status, body := b.submit(showCart, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Your cart is empty")

	status, body = b.submit(cartForm, url.Values{"sku": {"0134190440"}, "nUnits": {"2"}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Cart updated")

	status, body = b.submit(showCart, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Your cart")
	assert.Contains(t, body, "<li>0134190440: 2</li>")

	// A different browser has its own cart.
	other := newBrowser(t, srv)
	_, body = other.submit(showCart, nil)
	assert.Contains(t, body, "Your cart is empty")
}

func TestSubmitUnknownSku(t *testing.T) {
	_, srv := newTestApp(t)
	b := newBrowser(t, srv)

	status, body := b.submit(cartForm, url.Values{"sku": {"9999999999"}, "nUnits": {"1"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "unknown sku 9999999999")
}

func TestSubmitWithoutActionEchoesFields(t *testing.T) {
	_, srv := newTestApp(t)
	b := newBrowser(t, srv)

	status, body := b.submit(surveyForm, url.Values{
		"email":  {"reader@example.com"},
		"ebooks": {"yes"},
		"genres": {"science", "fiction"},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Submitted")
	assert.Contains(t, body, "<li>genres: science, fiction</li>")
	assert.Contains(t, body, "<li>email: reader@example.com</li>")
}

func TestSubmitCheckboxInputsCollectList(t *testing.T) {
	_, srv := newTestApp(t)
	b := newBrowser(t, srv)

	status, body := b.submit(surveyForm, url.Values{
		"email":       {"reader@example.com"},
		"ebooks":      {"no"},
		"newsletters": {"arrivals", "offers"},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "<li>newsletters: arrivals, offers</li>")
	assert.Contains(t, body, `checked="checked" id="/survey/items/1/items/4" name="newsletters" type="checkbox" value="arrivals"`)
	assert.Contains(t, body, `checked="checked" id="/survey/items/1/items/5" name="newsletters" type="checkbox" value="offers"`)
}

func TestAPINotFoundEnvelope(t *testing.T) {
	_, srv := newTestApp(t)

	resp, err := http.Get(srv.URL + "/api/nowhere")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var env api.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Len(t, env.Errors, 1)
	assert.Equal(t, api.CodeNotFound, env.Errors[0].Code)
	assert.Equal(t, "GET not supported for /api/nowhere", env.Errors[0].Message)
}

func TestSitemap(t *testing.T) {
	_, srv := newTestApp(t)

	resp, err := http.Get(srv.URL + "/sitemap.xml")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "<loc>"+srv.URL+"/</loc>")
	assert.Contains(t, string(body), "<loc>"+srv.URL+"/?ref=search</loc>")
	assert.NotContains(t, string(body), "ref=_")
}

func TestFeed(t *testing.T) {
	a, srv := newTestApp(t)
	addBook(t, a, "0134190440", "The Go Programming Language")

	resp, err := http.Get(srv.URL + "/feed.xml")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/rss+xml")
	assert.Contains(t, string(body), "<title>The Go Programming Language</title>")
	assert.Contains(t, string(body), "<link>"+srv.URL+"/api/books/0134190440</link>")
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newTestApp(t)
	b := newBrowser(t, srv)
	b.get("/")

	status, body := b.get("/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(body, "bookstore_") && strings.Contains(body, "requests_total"))
}

func TestCacheHeaders(t *testing.T) {
	_, srv := newTestApp(t)

	resp, err := http.Get(srv.URL + "/public/style.css")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "immutable")

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestInitRequiresSessionSecret(t *testing.T) {
	a := New(Config{}, WithStorage(store.NewMemory()))
	assert.Error(t, a.Init(context.Background()))
}
