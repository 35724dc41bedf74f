package attr

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ghalamif/simtemp/internal/domain"
)

const (
	DefaultPeriodMS    uint32 = 200
	DefaultThresholdMC int32  = 40000
)

// Store holds the shared configuration and telemetry fields. Each field is
// independently atomic; readers may see a new reading before its timestamp.
type Store struct {
	periodMS    atomic.Uint32
	thresholdMC atomic.Int32
	mode        atomic.Int32

	readingMC atomic.Int32
	timestamp atomic.Pointer[time.Time]
}

func NewStore() *Store {
	s := &Store{}
	s.periodMS.Store(DefaultPeriodMS)
	s.thresholdMC.Store(DefaultThresholdMC)
	s.mode.Store(int32(domain.ModeNormal))
	return s
}

func (s *Store) PeriodMS() uint32 { return s.periodMS.Load() }

func (s *Store) Period() time.Duration {
	return time.Duration(s.periodMS.Load()) * time.Millisecond
}

// SetPeriodMS rejects zero; the prior value is kept.
func (s *Store) SetPeriodMS(ms uint32) error {
	if ms == 0 {
		return domain.ErrZeroPeriod
	}
	s.periodMS.Store(ms)
	return nil
}

func (s *Store) ThresholdMC() int32 { return s.thresholdMC.Load() }

func (s *Store) SetThresholdMC(mc int32) { s.thresholdMC.Store(mc) }

func (s *Store) Mode() domain.Mode { return domain.Mode(s.mode.Load()) }

func (s *Store) SetMode(m domain.Mode) { s.mode.Store(int32(m)) }

func (s *Store) LastReadingMC() int32 { return s.readingMC.Load() }

// LastTimestamp is the zero time until the first cycle.
func (s *Store) LastTimestamp() time.Time {
	if ts := s.timestamp.Load(); ts != nil {
		return *ts
	}
	return time.Time{}
}

// Publish records one cycle's telemetry, reading first.
func (s *Store) Publish(readingMC int32, at time.Time) {
	s.readingMC.Store(readingMC)
	s.timestamp.Store(&at)
}

func (s *Store) ParsePeriod(attr, text string) error {
	v, err := strconv.ParseUint(strings.TrimSpace(text), 10, 32)
	if err != nil {
		return &domain.ParseError{Attribute: attr, Input: text, Err: err}
	}
	return s.SetPeriodMS(uint32(v))
}

func (s *Store) ParseThreshold(attr, text string) error {
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
	if err != nil {
		return &domain.ParseError{Attribute: attr, Input: text, Err: err}
	}
	s.SetThresholdMC(int32(v))
	return nil
}

func (s *Store) ParseMode(attr, text string) error {
	m, err := domain.ParseMode(attr, text)
	if err != nil {
		return err
	}
	s.SetMode(m)
	return nil
}
