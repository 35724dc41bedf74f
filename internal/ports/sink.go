package ports

import "github.com/ghalamif/simtemp/internal/domain"

type Sink interface {
	WriteBatch(samples []*domain.Sample) error
	Name() string
}
