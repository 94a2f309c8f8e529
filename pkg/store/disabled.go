package store

import (
	"context"
	"time"

	"github.com/playsync/sessiond/pkg/domain"
)

// Disabled is the nil-object backend used when no store is configured.
// State-changing operations trivially succeed so the service keeps
// working in single-instance deployments without coordination, and
// counters never accumulate so rate checks always allow. Reads report
// domain.ErrStoreDisabled.
type Disabled struct{}

func (Disabled) IncrWindow(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, domain.ErrStoreDisabled
}

func (Disabled) CreateIfAbsent(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}

func (Disabled) CompareAndSwap(context.Context, string, string, string, time.Duration) (CASResult, error) {
	return CASSwapped, nil
}

func (Disabled) Touch(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func (Disabled) Get(context.Context, string) (string, error) {
	return "", domain.ErrStoreDisabled
}
