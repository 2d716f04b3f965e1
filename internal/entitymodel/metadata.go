package entitymodel

import "doglog/docs/schema"

// Version returns the API contract version declared in the OpenAPI document,
// or "" when the document cannot be parsed.
func Version() string {
	info, err := schema.APIInfo()
	if err != nil {
		return ""
	}
	return info.Version
}
