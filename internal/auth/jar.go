package auth

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
)

// sessionJar is a cookie jar whose contents can be dropped while requests are
// in flight. net/http reads the client's Jar field without synchronization,
// so the field is assigned once and the swap happens behind this type's lock
// instead.
type sessionJar struct {
	mu    sync.RWMutex
	inner http.CookieJar
}

func newSessionJar() *sessionJar {
	jar, _ := cookiejar.New(nil)
	return &sessionJar{inner: jar}
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.inner.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.inner.Cookies(u)
}

// Reset discards every stored cookie.
func (j *sessionJar) Reset() {
	jar, _ := cookiejar.New(nil)
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner = jar
}
