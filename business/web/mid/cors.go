package mid

import (
	"context"
	"net/http"
	"slices"

	"github.com/ardanlabs/txchain/foundation/web"
)

// OriginAllowed reports whether the origin is in the allowed list. An
// entry of "*" allows every origin.
func OriginAllowed(origins []string, origin string) bool {
	if slices.Contains(origins, "*") {
		return true
	}
	return origin != "" && slices.Contains(origins, origin)
}

// Cors sets the Cross-Origin Resource Sharing headers for requests coming
// from one of the allowed origins. An origin of "*" allows every caller.
func Cors(origins ...string) web.Middleware {
	allowAll := slices.Contains(origins, "*")

	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			switch origin := r.Header.Get("Origin"); {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case OriginAllowed(origins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			default:
				return handler(ctx, w, r)
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, Content-Length, Accept-Encoding")
			w.Header().Set("Access-Control-Max-Age", "86400")

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
