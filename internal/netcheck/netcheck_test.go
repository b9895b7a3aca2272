package netcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsReachable_RespondingServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.True(t, IsReachable(context.Background(), srv.URL, time.Second))
}

func TestIsReachable_AnyHTTPResponseCounts(t *testing.T) {
	// reachability is about the network path, not API health
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	assert.True(t, IsReachable(context.Background(), srv.URL, time.Second))
}

func TestIsReachable_ClosedPort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	assert.False(t, IsReachable(context.Background(), url, time.Second))
}

func TestIsReachable_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	assert.False(t, IsReachable(context.Background(), srv.URL, 50*time.Millisecond))
}

func TestIsReachable_InvalidURL(t *testing.T) {
	assert.False(t, IsReachable(context.Background(), "http://[bad", time.Second))
}
