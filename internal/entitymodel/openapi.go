// Package entitymodel serves the API contract to clients at runtime.
package entitymodel

import (
	"net/http"

	"doglog/docs/schema/openapi"
)

// OpenAPISpec returns a copy of the embedded OpenAPI document.
func OpenAPISpec() []byte {
	return openapi.Spec()
}

// NewOpenAPIHandler serves the embedded OpenAPI YAML.
func NewOpenAPIHandler() http.Handler {
	spec := OpenAPISpec()
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(spec)
	})
}
