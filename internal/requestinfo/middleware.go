// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits high in the chain, right after the request-id logger
and before rate limiting.  For every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Picks the client IP.  X-Forwarded-For and X-Real-IP are honoured
     only when TrustProxy is set; otherwise r.RemoteAddr wins.
  3. Performs an optional GeoLite2 lookup.
  4. Stores a *RequestInfo in the request context.

Notes
-----
  • All look-ups are read-only, so the middleware is safe under heavy
    concurrency.
  • Oxford commas, two spaces after periods.
*/
package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yanizio/adept-signin/internal/logger"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enricher builds RequestInfo values.  The zero value trusts no proxy
// headers and skips geolocation.
type Enricher struct {
	Geo        *GeoDB
	TrustProxy bool
}

// Handler wraps next, attaches *RequestInfo, and forwards.
func (e *Enricher) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r, e.TrustProxy)

		info := &RequestInfo{
			ClientIP:  ip,
			UA:        parseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
			Geo:       e.Geo.lookup(ip),
			Timestamp: time.Now().UTC(),
		}

		ctx := r.Context()
		logger.FromContext(ctx).Debugw("request info", append(info.LogFields(), "path", r.URL.Path)...)

		next.ServeHTTP(w, r.WithContext(WithInfo(ctx, info)))
	})
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// ClientIP extracts the caller's address.  With trustProxy it prefers the
// left-most parseable X-Forwarded-For entry, then X-Real-IP.
func ClientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, part := range strings.Split(xff, ",") {
				if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
					return ip
				}
			}
		}
		if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
			if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}
