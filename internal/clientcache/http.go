// Package clientcache carries session tokens between page loads without cookies.
//
// Two channels are used. The URL channel is a query parameter appended to the
// next navigation right after a session is created or validated, so the token
// is available synchronously on that load. The persistent channel is a durable
// client-side slot (browser storage) that the page re-sends on every request.
// After validation the visible URL is scrubbed so the token does not leak via
// history, shared links or referrers.
package clientcache

import (
	"net/url"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultURLParam is the query parameter of the URL channel.
	DefaultURLParam = "session_token"
	// StorageKey is the slot the page script uses in its durable storage.
	StorageKey = "session_token"

	// HeaderToken carries the stored token on requests and the token to store on responses.
	HeaderToken = "X-Session-Token"
	// HeaderBootstrapURL is the URL (with token) to use for the next navigation.
	HeaderBootstrapURL = "X-Session-Bootstrap-URL"
	// HeaderCanonicalURL is the URL without token; the page replaces its history entry with it.
	HeaderCanonicalURL = "X-Session-Canonical-URL"
	// HeaderClear tells the page to drop its stored token.
	HeaderClear = "X-Session-Clear"
)

// ExposedHeaders lists the response headers a browser client must be allowed to read.
var ExposedHeaders = []string{HeaderToken, HeaderBootstrapURL, HeaderCanonicalURL, HeaderClear}

// HTTP adapts one gin request/response pair to the client cache protocol.
type HTTP struct {
	c     *gin.Context
	param string
}

// FromGin wraps c. An empty param selects DefaultURLParam.
func FromGin(c *gin.Context, param string) *HTTP {
	if param == "" {
		param = DefaultURLParam
	}
	return &HTTP{c: c, param: param}
}

// ResolveCandidateToken prefers the URL channel, then the persistent slot header.
func (h *HTTP) ResolveCandidateToken() (string, bool) {
	if tok := h.c.Query(h.param); tok != "" {
		return tok, true
	}
	if tok := h.c.GetHeader(HeaderToken); tok != "" {
		return tok, true
	}
	return "", false
}

func (h *HTTP) Persist(token string) {
	w := h.c.Writer.Header()
	w.Del(HeaderClear)
	w.Set(HeaderToken, token)
	w.Set(HeaderBootstrapURL, h.urlWith(token))
}

func (h *HTTP) Clear() {
	w := h.c.Writer.Header()
	w.Del(HeaderToken)
	w.Del(HeaderBootstrapURL)
	w.Set(HeaderClear, "1")
	w.Set(HeaderCanonicalURL, h.urlWith(""))
}

func (h *HTTP) ScrubURL() {
	h.c.Writer.Header().Set(HeaderCanonicalURL, h.urlWith(""))
}

// urlWith returns the request URI with the token parameter set, or removed when token is empty.
func (h *HTTP) urlWith(token string) string {
	u := *h.c.Request.URL
	q := u.Query()
	if token == "" {
		q.Del(h.param)
	} else {
		q.Set(h.param, token)
	}
	u.RawQuery = q.Encode()
	return (&url.URL{Path: u.Path, RawPath: u.RawPath, RawQuery: u.RawQuery}).RequestURI()
}
