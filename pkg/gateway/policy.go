package gateway

import (
	"net/http"
	"strings"

	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
)

// Policy is the caching discipline applied to a request.
type Policy string

const (
	// PolicyCacheFirst serves any cached entry without contacting the network.
	PolicyCacheFirst Policy = "cache_first"

	// PolicyStaleWhileRevalidate serves the cached entry and refreshes it in the background.
	PolicyStaleWhileRevalidate Policy = "stale_while_revalidate"

	// PolicyPassThrough forwards to the network without caching. GET
	// requests that were precached are answered from the precache bucket.
	PolicyPassThrough Policy = "pass_through"
)

// Classify selects the policy for a request. First match wins.
func (g *Gateway) Classify(req *fetch.Request) Policy {
	return classify(req, g.config.APIPrefix)
}

func classify(req *fetch.Request, apiPrefix string) Policy {
	if req.Kind() == fetch.KindImage && isGet(req) {
		return PolicyCacheFirst
	}
	if apiPrefix != "" && strings.HasPrefix(req.Path(), apiPrefix) {
		return PolicyStaleWhileRevalidate
	}
	return PolicyPassThrough
}

// bucketFor returns the bucket a policy reads and writes.
func (g *Gateway) bucketFor(policy Policy) string {
	switch policy {
	case PolicyCacheFirst:
		return g.config.ImageBucket
	case PolicyStaleWhileRevalidate:
		return g.config.APIBucket
	default:
		return g.config.PrecacheBucket
	}
}

// isGet reports whether req takes part in cache lookups and writes.
func isGet(req *fetch.Request) bool {
	return strings.EqualFold(req.Method, http.MethodGet)
}
