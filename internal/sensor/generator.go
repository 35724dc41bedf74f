package sensor

import (
	"math/rand"

	"github.com/ghalamif/simtemp/internal/domain"
)

const (
	BaselineMC  int32 = 32000
	RampUpperMC int32 = 50000
	RampLowerMC int32 = 20000
	RampStepMC  int32 = 500
)

type Direction int

const (
	Rising Direction = iota
	Falling
)

func (d Direction) String() string {
	if d == Falling {
		return "falling"
	}
	return "rising"
}

// State is the generator's private history. Only the scheduler's cycle
// touches it, so it carries no lock.
type State struct {
	ReadingMC int32
	Direction Direction
}

// NoiseFunc returns one uniformly distributed 16-bit value.
type NoiseFunc func() uint16

// Generator produces the next simulated reading for the selected mode.
type Generator struct {
	state State
	noise NoiseFunc
}

func NewGenerator(noise NoiseFunc) *Generator {
	if noise == nil {
		noise = defaultNoise
	}
	return &Generator{
		state: State{ReadingMC: BaselineMC, Direction: Rising},
		noise: noise,
	}
}

// Next advances the state for mode and returns the new reading.
func (g *Generator) Next(mode domain.Mode) int32 {
	switch mode {
	case domain.ModeRamp:
		g.state.ReadingMC = ramp(&g.state)
	case domain.ModeNoisy:
		g.state.ReadingMC = BaselineMC + int32(g.noise())
	default:
		g.state.ReadingMC = BaselineMC
	}
	return g.state.ReadingMC
}

// State returns a copy of the generator state.
func (g *Generator) State() State { return g.state }

func ramp(s *State) int32 {
	switch {
	case s.ReadingMC >= RampUpperMC:
		s.Direction = Falling
	case s.ReadingMC <= RampLowerMC:
		s.Direction = Rising
	}
	if s.Direction == Rising {
		return s.ReadingMC + RampStepMC
	}
	return s.ReadingMC - RampStepMC
}

func defaultNoise() uint16 { return uint16(rand.Uint32()) }
