package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// OpenAPIValidator checks observed HTTP responses against the API
// contract in api/openapi/openapi.yaml.
type OpenAPIValidator struct {
	doc    *openapi3.T
	router routers.Router
}

// LoadOpenAPIValidator loads the contract from contractPath and
// validates the document itself. Usable from TestMain, where no
// *testing.T exists yet.
func LoadOpenAPIValidator(contractPath string) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromFile(contractPath)
	if err != nil {
		return nil, fmt.Errorf("load API contract %s: %w", contractPath, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid API contract: %w", err)
	}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build contract router: %w", err)
	}

	return &OpenAPIValidator{doc: doc, router: router}, nil
}

// NewOpenAPIValidator is LoadOpenAPIValidator with test-fatal error
// handling.
func NewOpenAPIValidator(t *testing.T, contractPath string) *OpenAPIValidator {
	t.Helper()

	v, err := LoadOpenAPIValidator(contractPath)
	if err != nil {
		t.Fatalf("load API contract: %v", err)
	}
	return v
}

// skipPath marks endpoints outside the contract-checked surface.
func (v *OpenAPIValidator) skipPath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

// ValidateResponse checks resp against the contract entry matched by
// req. The response body is consumed and restored so callers can still
// decode it. Violations are reported as test errors, not fatals, so a
// single run surfaces every mismatch.
func (v *OpenAPIValidator) ValidateResponse(t *testing.T, req *http.Request, resp *http.Response) {
	t.Helper()

	if v.skipPath(req.URL.Path) {
		return
	}

	// The contract router matches on path only, not on the test
	// server's host.
	routeReq, err := http.NewRequest(req.Method, req.URL.Path, nil)
	if err != nil {
		t.Errorf("build route request: %v", err)
		return
	}

	route, pathParams, err := v.router.FindRoute(routeReq)
	if err != nil {
		t.Errorf("no contract entry for %s %s: %v", req.Method, req.URL.Path, err)
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Errorf("read response body: %v", err)
		return
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   io.NopCloser(bytes.NewReader(body)),
		Options: &openapi3filter.Options{
			MultiError:            true,
			IncludeResponseStatus: true,
		},
	}

	if err := openapi3filter.ValidateResponse(context.Background(), input); err != nil {
		t.Errorf("contract violation for %s %s (status %d): %v\nbody: %s",
			req.Method, req.URL.Path, resp.StatusCode, truncate(err.Error(), 500), truncate(string(body), 200))
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
