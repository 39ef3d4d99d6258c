package analysis

import (
	"fmt"
	"strings"
)

// Persona is the closed set of critique voices a session can run under.
type Persona string

const (
	PersonaStrategic    Persona = "strategic"
	PersonaMirror       Persona = "mirror"
	PersonaMadScientist Persona = "mad_scientist"
	PersonaExecutive    Persona = "executive"
	PersonaClarity      Persona = "clarity"
)

var personas = []Persona{
	PersonaStrategic,
	PersonaMirror,
	PersonaMadScientist,
	PersonaExecutive,
	PersonaClarity,
}

func Personas() []Persona {
	out := make([]Persona, len(personas))
	copy(out, personas)
	return out
}

func ParsePersona(s string) (Persona, error) {
	p := Persona(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range personas {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown persona %q", s)
}

// Mode selects how many analyzer backends a session fans out to.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSingle, "":
		return ModeSingle, nil
	case ModeMulti:
		return ModeMulti, nil
	}
	return "", fmt.Errorf("unknown analysis mode %q", s)
}
