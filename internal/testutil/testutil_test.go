package testutil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestAssertStatusCode covers the matching path; the failure path is
// exercised indirectly by every handler test that uses the helper.
func TestAssertStatusCode(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

// TestAssertNoError covers the nil-error path.
func TestAssertNoError(t *testing.T) {
	AssertNoError(t, nil)
}

// TestAssertError covers the non-nil-error path.
func TestAssertError(t *testing.T) {
	AssertError(t, errors.New("boom"))
}

// TestAssertContentType checks prefix matching against charset suffixes.
func TestAssertContentType(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	AssertContentType(t, w, "application/json")
}

// TestDecodeJSONBody decodes a recorded JSON payload.
func TestDecodeJSONBody(t *testing.T) {
	w := httptest.NewRecorder()
	w.Body.WriteString(`{"name":"night","count":3}`)

	var got struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	DecodeJSONBody(t, w, &got)

	if got.Name != "night" || got.Count != 3 {
		t.Errorf("decoded %+v, want name=night count=3", got)
	}
}
