package httpx

import (
	"net/http"
	"slices"
)

const (
	allowedMethods = "OPTIONS,GET,POST"
	allowedHeaders = "Accept,Origin,Content-Type,Content-Length,Accept-Encoding,Authorization"
)

// EnableCors answers preflight requests and sets the CORS headers.
// With no origins every origin is allowed; otherwise only the listed ones are
// echoed back.
func EnableCors(h http.Handler, origins ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch origin := r.Header.Get("Origin"); {
		case len(origins) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case slices.Contains(origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		h.ServeHTTP(w, r)
	})
}
