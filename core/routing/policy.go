package routing

import (
	"errors"
	"fmt"
	"strings"
)

// FallbackPolicy decides which cycle-graph failures send a bike leg to the
// road graph.
type FallbackPolicy string

const (
	// FallbackAny retries on the road graph after any cycle-graph failure.
	FallbackAny FallbackPolicy = "any"
	// FallbackRouteErrors retries only after ErrNoProjection or ErrNoPath.
	FallbackRouteErrors FallbackPolicy = "route_errors"
)

// ParseFallbackPolicy validates a configured policy name. Empty means FallbackAny.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FallbackAny, nil
	case FallbackAny, FallbackRouteErrors:
		return p, nil
	default:
		return "", fmt.Errorf("unknown fallback policy %q", s)
	}
}

// ShouldFallback reports whether err permits a retry on the road graph.
func (p FallbackPolicy) ShouldFallback(err error) bool {
	if err == nil {
		return false
	}
	if p == FallbackRouteErrors {
		return errors.Is(err, ErrNoProjection) || errors.Is(err, ErrNoPath)
	}
	return true
}
