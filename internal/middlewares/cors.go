package middlewares

import (
	"net/http"

	"github.com/go-chi/cors"
)

var allMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// CORSMiddleware answers preflight requests and sets CORS headers.
// A "*" entry in methods allows every standard method.
func CORSMiddleware(origins, methods, headers []string, allowCredentials bool) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   expandMethods(methods),
		AllowedHeaders:   headers,
		ExposedHeaders:   []string{"X-Total-Count", RequestIDHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	})
}

func expandMethods(methods []string) []string {
	for _, m := range methods {
		if m == "*" {
			return allMethods
		}
	}
	return methods
}
