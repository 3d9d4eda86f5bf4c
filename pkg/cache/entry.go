package cache

import (
	"net/http"
	"time"
)

// Entry represents a cached response in one bucket.
type Entry struct {
	// Key is the normalized request locator
	Key string `json:"key"`

	// Bucket is the name of the bucket holding the entry
	Bucket string `json:"bucket"`

	// Data is the response body
	Data []byte `json:"data"`

	// StatusCode is the status of the stored response
	StatusCode int `json:"status_code"`

	// Headers are the response headers
	Headers http.Header `json:"headers"`

	// StoredAt is when the entry was written
	StoredAt time.Time `json:"stored_at"`
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age(now time.Time) time.Duration {
	age := now.Sub(e.StoredAt)
	if age < 0 {
		return 0
	}
	return age
}

// Cacheable reports whether the stored status is allowed in a bucket.
func (e *Entry) Cacheable() bool {
	return IsCacheable(e.StatusCode)
}
