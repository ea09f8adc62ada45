package security

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORSConfig lists what cross-origin callers may do. An AllowedOrigins entry
// of "*" admits every origin.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         int
}

func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         600,
	}
}

type CORS struct {
	handler *cors.Cors
}

func NewCORS(config CORSConfig) *CORS {
	origins := make([]string, 0, len(config.AllowedOrigins))
	for _, o := range config.AllowedOrigins {
		// Browsers send Origin without a trailing slash.
		origins = append(origins, strings.TrimRight(o, "/"))
	}
	return &CORS{handler: cors.New(cors.Options{
		AllowedOrigins:       origins,
		AllowedMethods:       config.AllowedMethods,
		AllowedHeaders:       config.AllowedHeaders,
		ExposedHeaders:       config.ExposedHeaders,
		MaxAge:               config.MaxAge,
		OptionsSuccessStatus: http.StatusNoContent,
	})}
}

// Middleware adds CORS headers and answers preflight requests with 204
// without reaching the wrapped handler.
func (c *CORS) Middleware(next http.Handler) http.Handler {
	return c.handler.Handler(next)
}
