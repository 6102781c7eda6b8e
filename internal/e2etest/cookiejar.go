package e2etest

import (
	"github.com/myrjola/whodunit/internal/errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// sessionJar keeps the session cookie of one client. The server marks its cookies Secure, so over plain HTTP the
// jar stores copies without the flag. Cookies received over HTTPS are stored as they are.
type sessionJar struct {
	*cookiejar.Jar
}

func newSessionJar() (*sessionJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "new cookie jar")
	}
	return &sessionJar{Jar: jar}, nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if u.Scheme != "http" {
		j.Jar.SetCookies(u, cookies)
		return
	}
	plain := make([]*http.Cookie, len(cookies))
	for i, cookie := range cookies {
		c := *cookie
		c.Secure = false
		plain[i] = &c
	}
	j.Jar.SetCookies(u, plain)
}
