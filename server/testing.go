/*
	This file contains functions useful for testing the segeval server in other
	packages.  They cannot be in a _test.go file since they would be unavailable
	to test files in external packages, so they are exported and contain the
	"Test" keyword.
*/

package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestHTTPResponse returns a response from a test request with optional headers
// given as key, value pairs.  Use TestHTTP if you just want the response body bytes.
func TestHTTPResponse(t *testing.T, s *Server, method, urlStr string, payload io.Reader, headers ...string) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, urlStr, payload)
	if err != nil {
		t.Fatalf("Unsuccessful %s on %q: %v\n", method, urlStr, err)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp := httptest.NewRecorder()
	s.ServeSingleHTTP(resp, req)
	return resp
}

// TestHTTP returns the response body bytes for a test request, making sure the
// response has status OK.
func TestHTTP(t *testing.T, s *Server, method, urlStr string, payload io.Reader, headers ...string) []byte {
	resp := TestHTTPResponse(t, s, method, urlStr, payload, headers...)
	if resp.Code != http.StatusOK {
		t.Fatalf("Bad server response (%d) to %s on %q: %s\n", resp.Code, method, urlStr, resp.Body.String())
	}
	return resp.Body.Bytes()
}

// TestBadHTTP expects an HTTP response with an error status code and returns it.
func TestBadHTTP(t *testing.T, s *Server, method, urlStr string, payload io.Reader, headers ...string) int {
	resp := TestHTTPResponse(t, s, method, urlStr, payload, headers...)
	if resp.Code == http.StatusOK {
		t.Fatalf("Expected bad server response to %s on %q, got %d instead.\n", method, urlStr, resp.Code)
	}
	return resp.Code
}
