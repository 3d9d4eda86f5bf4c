// Package precache warms gateway buckets ahead of time.
//
// A Precacher runs a list of requests through the gateway's Precache with a
// bounded worker pool, so each response lands in the bucket its policy
// selects. Requests classified as pass-through land in the precache bucket
// and are then served from it while offline.
//
// Example usage:
//
//	p := precache.New(gw, precache.DefaultConfig())
//	report, err := p.Warm(ctx, []*fetch.Request{
//		fetch.NewRequest("GET", "https://app.example/img/logo.png", "image", nil),
//		fetch.NewRequest("GET", "https://app.example/api/me", "", nil),
//		fetch.NewRequest("GET", "https://app.example/index.html", "document", nil),
//	})
//
// A failed request is counted in the report and does not stop the others.
package precache
