package domain

import (
	"strconv"
	"strings"
)

// Mode selects the generation policy. Values outside the known set are kept
// as-is and generate like ModeNormal.
type Mode int32

const (
	ModeNormal Mode = 0
	ModeNoisy  Mode = 1
	ModeRamp   Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeNoisy:
		return "noisy"
	case ModeRamp:
		return "ramp"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMode accepts an integer or one of normal, noisy, ramp.
func ParseMode(attr, s string) (Mode, error) {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "normal":
		return ModeNormal, nil
	case "noisy":
		return ModeNoisy, nil
	case "ramp":
		return ModeRamp, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, &ParseError{Attribute: attr, Input: s, Err: err}
	}
	return Mode(n), nil
}
