// Package openapi embeds the Dog Log OpenAPI document for runtime distribution.
package openapi

import _ "embed"

// Document contains the OpenAPI description of the HTTP API.
//
//go:embed doglog.yaml
var Document []byte

// Spec returns a copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), Document...)
}
