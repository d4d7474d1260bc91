package requestid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// Header is the request and response header carrying the ID.
const Header = "X-Request-ID"

const maxIDLength = 128

var validID = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// Middleware reuses a well-formed ID from the first matching header (Header,
// then fallbacks in order) or generates a UUID. The ID is stored in the
// request context and echoed in the response Header.
//
// Fallbacks are typically the trace headers of the proxy in front of the
// service, so that its access logs and ours share one ID.
func Middleware(fallbacks ...string) func(http.Handler) http.Handler {
	headers := append([]string{Header}, fallbacks...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			for _, h := range headers {
				if v := r.Header.Get(h); valid(v) {
					id = v
					break
				}
			}
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(Header, id)
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
		})
	}
}

func valid(id string) bool {
	return id != "" && len(id) <= maxIDLength && validID.MatchString(id)
}
