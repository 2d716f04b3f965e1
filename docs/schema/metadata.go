// Package schema exposes metadata from the published API contract for runtime use.
package schema

import (
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"doglog/docs/schema/openapi"
)

// Info is the info block of the OpenAPI document.
type Info struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

type document struct {
	OpenAPI string                    `yaml:"openapi"`
	Info    Info                      `yaml:"info"`
	Paths   map[string]map[string]any `yaml:"paths"`
}

var (
	docOnce sync.Once
	doc     document
	docErr  error
)

func load() (document, error) {
	docOnce.Do(func() {
		if err := yaml.Unmarshal(openapi.Document, &doc); err != nil {
			docErr = fmt.Errorf("parse openapi document: %w", err)
		}
	})
	return doc, docErr
}

// APIInfo returns the info block of the embedded OpenAPI document.
func APIInfo() (Info, error) {
	d, err := load()
	if err != nil {
		return Info{}, err
	}
	return d.Info, nil
}

// Operations returns the documented methods per path, methods upper-cased.
// Path-level keys such as "parameters" are skipped.
func Operations() (map[string][]string, error) {
	d, err := load()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(d.Paths))
	for path, item := range d.Paths {
		for key := range item {
			if m, ok := httpMethods[key]; ok {
				out[path] = append(out[path], m)
			}
		}
	}
	return out, nil
}

var httpMethods = map[string]string{
	"get":     "GET",
	"put":     "PUT",
	"post":    "POST",
	"patch":   "PATCH",
	"delete":  "DELETE",
	"head":    "HEAD",
	"options": "OPTIONS",
}
