package ports

import "github.com/ghalamif/simtemp/internal/domain"

type SampleQueue interface {
	Enqueue(s *domain.Sample) bool
	DequeueBatch(max int) []*domain.Sample
	Len() int
}
