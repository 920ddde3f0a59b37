package mqhandler

import "context"

// Deduper guards handlers against redelivered events. AcquireOnce
// reports whether this is the first processing attempt; Release undoes
// the acquisition so a retryable failure can be processed again.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, entityID int) bool
	Release(ctx context.Context, handler string, entityID int)
}
