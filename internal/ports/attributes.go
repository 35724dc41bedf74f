package ports

import (
	"context"
	"time"

	"github.com/ghalamif/simtemp/internal/domain"
)

// Attributes is the textual attribute surface an external layer forwards
// reads and writes to.
type Attributes interface {
	Names() []string
	Read(name string) (string, error)
	Write(name, value string) error
}

// Events is the readiness surface. Wait blocks until one of the requested
// conditions holds; WaitTimeout returns an empty mask when the timeout elapses.
type Events interface {
	Poll(mask domain.ReadinessMask) domain.ReadinessMask
	Wait(ctx context.Context, mask domain.ReadinessMask) (domain.ReadinessMask, error)
	WaitTimeout(mask domain.ReadinessMask, timeout time.Duration) domain.ReadinessMask
}
