package bookstore

import "testing"

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"http://localhost:3000", nil, "http://localhost:3000/"},
		{"https://example.com/shop", nil, "https://example.com/shop"},
		{"http://localhost:3000", []string{"api", "books", "0134190440"}, "http://localhost:3000/api/books/0134190440"},
		{"https://example.com/shop/", []string{"covers", "x.jpg"}, "https://example.com/shop/covers/x.jpg"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestRefURL(t *testing.T) {
	if got, want := RefURL("http://localhost:3000", "cart"), "http://localhost:3000/?ref=cart"; got != want {
		t.Errorf("RefURL = %q, want %q", got, want)
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("BOOKSTORE_TEST_VALUE", "")
	if got := EnvOr("BOOKSTORE_TEST_VALUE", "fallback"); got != "fallback" {
		t.Errorf("EnvOr = %q, want fallback", got)
	}
	t.Setenv("BOOKSTORE_TEST_VALUE", "set")
	if got := EnvOr("BOOKSTORE_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("EnvOr = %q, want set", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{Addr: ":8080"}
	c.setDefaults()
	if c.APIURL != "http://localhost:8080/api" {
		t.Errorf("APIURL = %q", c.APIURL)
	}
	if c.Name != "Bookstore" || c.CartLimit != 30 || c.DatabaseURL != "data/bookstore.db" {
		t.Errorf("unexpected defaults: %+v", c)
	}
}

func TestPageTitle(t *testing.T) {
	a := &App{Config: Config{Name: "Bookstore"}}
	tests := map[string]string{
		"_":      "Bookstore",
		"search": "Bookstore - Search",
		"élan":   "Bookstore - Élan",
	}
	for ref, want := range tests {
		if got := a.pageTitle(ref); got != want {
			t.Errorf("pageTitle(%q) = %q, want %q", ref, got, want)
		}
	}
}
