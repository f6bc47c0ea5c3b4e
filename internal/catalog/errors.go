package catalog

import (
	"fmt"
	"time"
)

// ThrottleError сигнализирует ретраеру, что каталог попросил подождать
// (HTTP 429 + Retry-After). Ретраер уважает RetryAfter вместо своей задержки.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }
