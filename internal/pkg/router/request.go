package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shandysiswandi/preschool/internal/pkg/goerror"
)

const maxRequestBodyBytes = 64 * 1024

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	*http.Request
}

// DecodeBody strictly decodes a single JSON object into dst. Unknown fields,
// trailing data and oversized bodies are rejected as invalid format.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}

// ClientIP returns the address resolved by the real IP middleware. It may come
// from proxy headers, so use it for logging and metadata only.
func (r *Request) ClientIP() string {
	return clientIP(r.Request)
}
