// Package openapi embeds the OpenAPI document for the Tripwise API.
// The HTTP server serves it at /openapi.yaml.
package openapi

import _ "embed"

// Document contains the raw bytes of openapi.yaml, embedded at compile time
// so the served contract always ships with the code that implements it.
//
//go:embed openapi.yaml
var Document []byte
