package bookstore

import (
	"net/url"
	"path"
)

// BuildURL joins a base URL with path segments. With no segments the base
// path gets a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	if len(pathSegments) == 0 {
		if u.Path == "" {
			u.Path = "/"
		}
		return u.String()
	}
	u.Path = path.Join(append([]string{"/", u.Path}, pathSegments...)...)
	return u.String()
}

// RefURL returns the page URL that renders the top-level ref.
func RefURL(base, ref string) string {
	u, err := url.Parse(BuildURL(base))
	if err != nil {
		return base
	}
	u.RawQuery = url.Values{"ref": {ref}}.Encode()
	return u.String()
}
