package cache

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
)

// KeyPrefix namespaces every entry written to a shared store.
const KeyPrefix = "offline:cache"

// KeyFor returns the bucket key of a request.
// The key is the normalized locator, so equivalent URLs share one entry.
func KeyFor(req *fetch.Request) string {
	return fetch.NormalizeLocator(req.URL)
}

// StorageKey generates the fully qualified key of an entry in a shared store.
// Format: offline:cache:bucket:key
//
// Example:
//
//	offline:cache:images:https://example.com/logo.webp
func StorageKey(bucket, key string) string {
	return strings.Join([]string{KeyPrefix, bucket, key}, ":")
}

// ValidateBucketName rejects names that would collide in StorageKey.
func ValidateBucketName(name string) error {
	if name == "" {
		return fmt.Errorf("bucket name cannot be empty")
	}
	if strings.ContainsAny(name, ": \t\n") {
		return fmt.Errorf("bucket name %q contains invalid characters", name)
	}
	return nil
}
