package attr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/ports"
)

// Attribute names exposed at the engine boundary.
const (
	SamplingPeriod = "sampling_period_ms"
	Threshold      = "threshold_mc"
	Mode           = "mode"
	Temperature    = "temp_mc"
	Timestamp      = "timestamp"
	Flags          = "flags"
)

var names = []string{SamplingPeriod, Threshold, Mode, Temperature, Timestamp, Flags}

// FlagSource reports the current status bits without consuming them.
type FlagSource interface {
	Flags() domain.ReadinessMask
}

// Surface maps attribute names onto a Store using the textual formats of the
// attribute table.
type Surface struct {
	store *Store
	flags FlagSource
	obs   ports.Observability
}

func NewSurface(store *Store, flags FlagSource, obs ports.Observability) *Surface {
	return &Surface{store: store, flags: flags, obs: obs}
}

func (s *Surface) Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

func (s *Surface) Read(name string) (string, error) {
	switch name {
	case SamplingPeriod:
		return strconv.FormatUint(uint64(s.store.PeriodMS()), 10), nil
	case Threshold:
		return strconv.FormatInt(int64(s.store.ThresholdMC()), 10), nil
	case Mode:
		return strconv.FormatInt(int64(s.store.Mode()), 10), nil
	case Temperature:
		return strconv.FormatUint(uint64(uint32(s.store.LastReadingMC())), 10), nil
	case Timestamp:
		ts := s.store.LastTimestamp()
		if ts.IsZero() {
			return "", nil
		}
		return ts.Format(domain.TimestampLayout), nil
	case Flags:
		var bits domain.ReadinessMask
		if s.flags != nil {
			bits = s.flags.Flags()
		}
		return strconv.FormatUint(uint64(bits), 10), nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownAttribute, name)
	}
}

func (s *Surface) Write(name, value string) error {
	err := s.write(name, value)
	if err != nil && s.obs != nil {
		s.obs.IncCounter("simtemp_attribute_write_errors_total", 1)
		s.obs.LogError("attribute_write_failed", err, ports.Field{Key: "attribute", Value: name})
	}
	return err
}

func (s *Surface) write(name, value string) error {
	switch name {
	case SamplingPeriod:
		return s.store.ParsePeriod(name, value)
	case Threshold:
		return s.store.ParseThreshold(name, value)
	case Mode:
		return s.store.ParseMode(name, value)
	case Temperature, Timestamp:
		return fmt.Errorf("%w: %q", domain.ErrReadOnly, name)
	case Flags:
		// Accepted for compatibility; status bits are owned by the engine.
		if _, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32); err != nil {
			return &domain.ParseError{Attribute: name, Input: value, Err: err}
		}
		if s.obs != nil {
			s.obs.LogInfo("flags_write_ignored", ports.Field{Key: "value", Value: strings.TrimSpace(value)})
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownAttribute, name)
	}
}

var _ ports.Attributes = (*Surface)(nil)
