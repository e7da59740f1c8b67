package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

func TestClassifyHTTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"nil", nil, ErrorClassification{}},
		{"canceled", fmt.Errorf("wrap: %w", context.Canceled), ErrorClassification{}},
		{"rate limited", domain.ErrRateLimited, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"503", &HTTPStatusError{StatusCode: http.StatusServiceUnavailable}, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"400", &HTTPStatusError{StatusCode: http.StatusBadRequest}, ErrorClassification{}},
		{"network", &net.OpError{Op: "dial", Err: errors.New("refused")}, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"malformed", domain.ErrMalformedResponse, ErrorClassification{RecordFailure: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyHTTP(tc.err); got != tc.want {
				t.Errorf("ClassifyHTTP() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestHTTPStatusError_Error(t *testing.T) {
	err := &HTTPStatusError{Operation: "rerank", Status: "502 Bad Gateway", Body: " upstream down \n"}
	if got := err.Error(); got != "rerank status: 502 Bad Gateway: upstream down" {
		t.Errorf("Error() = %q", got)
	}
	err.Body = ""
	if got := err.Error(); got != "rerank status: 502 Bad Gateway" {
		t.Errorf("Error() = %q", got)
	}
}
