package service

import (
	"context"
	"time"
)

// ForecastCache stores computed forecasts. Keys already encode the store
// generation, so entries never need explicit invalidation.
type ForecastCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}
