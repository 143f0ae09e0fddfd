package database

import (
	"context"
	"time"
)

// Pinger is implemented by every backing store client.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// CheckAll pings each store with a shared timeout and returns the failures
// keyed by store name. An empty map means everything is reachable.
func CheckAll(ctx context.Context, timeout time.Duration, pingers ...Pinger) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	failures := make(map[string]string)
	for _, p := range pingers {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			failures[p.Name()] = err.Error()
		}
	}
	return failures
}
