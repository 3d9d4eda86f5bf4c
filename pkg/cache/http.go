package cache

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
)

// IsCacheable reports whether a response status may be written to a bucket.
// Only "ok" and the opaque marker of cross-origin responses qualify.
func IsCacheable(status int) bool {
	return status == http.StatusOK || status == fetch.StatusOpaque
}

// EntryFromResponse converts a live response into an entry of bucket.
// The body is copied so the caller may keep using the response.
func EntryFromResponse(bucket, key string, resp *fetch.Response, storedAt time.Time) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	return &Entry{
		Key:        key,
		Bucket:     bucket,
		Data:       bytes.Clone(resp.Body),
		StatusCode: resp.Status,
		Headers:    resp.Header.Clone(),
		StoredAt:   storedAt,
	}, nil
}

// EntryToResponse converts a stored entry back into a response served from cache.
func EntryToResponse(entry *Entry) *fetch.Response {
	if entry == nil {
		return nil
	}

	header := entry.Headers.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("X-Cache-Bucket", entry.Bucket)
	header.Set("X-Cache-Stored-At", entry.StoredAt.UTC().Format(http.TimeFormat))

	return &fetch.Response{
		Status: entry.StatusCode,
		Header: header,
		Body:   bytes.Clone(entry.Data),
		Source: fetch.SourceCache,
	}
}
