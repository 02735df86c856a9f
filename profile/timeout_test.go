package profile

import (
	"testing"
	"time"
)

func TestNewHTTPDirectory_Timeout(t *testing.T) {
	d := NewHTTPDirectory("http://directory:8080")
	if d.httpClient.Timeout != 15*time.Second {
		t.Errorf("expected 15s default timeout, got %v", d.httpClient.Timeout)
	}

	d = NewHTTPDirectory("http://directory:8080", WithDirectoryTimeout(3*time.Second))
	if d.httpClient.Timeout != 3*time.Second {
		t.Errorf("expected configured timeout, got %v", d.httpClient.Timeout)
	}

	d = NewHTTPDirectory("http://directory:8080", WithDirectoryTimeout(0))
	if d.httpClient.Timeout != 15*time.Second {
		t.Errorf("expected zero timeout to keep the default, got %v", d.httpClient.Timeout)
	}
}
