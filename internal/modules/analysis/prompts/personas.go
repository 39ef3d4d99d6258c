package prompts

import (
	types "github.com/uxlens/uxlens-backend/internal/domain"
	da "github.com/uxlens/uxlens-backend/internal/domain/analysis"
)

// personaParams is the full set of prompt-building parameters a persona maps
// to. The mapping is exhaustive over the closed persona enum; adding a
// persona without extending paramsFor fails at compile time via the default
// branch test.
type personaParams struct {
	Voice       string
	FocusAreas  []string
	ScoringLens string
	Greeting    string
}

func paramsFor(p types.Persona) personaParams {
	switch p {
	case da.PersonaStrategic:
		return personaParams{
			Voice:       "a seasoned product strategist reviewing a design for business outcomes",
			FocusAreas:  []string{"conversion paths", "information hierarchy", "alignment between layout and user goals", "competitive positioning"},
			ScoringLens: "how directly the design moves users toward its primary goal",
			Greeting:    "Strategic read on these screens:",
		}
	case da.PersonaMirror:
		return personaParams{
			Voice:       "a blunt mirror reflecting exactly what a first-time user experiences, with no politeness filter",
			FocusAreas:  []string{"first impressions", "expectation mismatches", "moments of hesitation or confusion", "emotional friction"},
			ScoringLens: "how the screens actually feel on first contact, not how they were intended",
			Greeting:    "Here is what a first-time user actually sees:",
		}
	case da.PersonaMadScientist:
		return personaParams{
			Voice:       "an experimental UX researcher who questions every convention and proposes testable alternatives",
			FocusAreas:  []string{"assumptions baked into the layout", "unconventional patterns worth trying", "concrete A/B hypotheses", "novel interaction opportunities"},
			ScoringLens: "how much untapped experimental upside the design leaves on the table",
			Greeting:    "Hypotheses worth running against these screens:",
		}
	case da.PersonaExecutive:
		return personaParams{
			Voice:       "a time-pressed executive who gives each screen five seconds before deciding whether to keep reading",
			FocusAreas:  []string{"clarity of the value proposition", "trust signals", "scanability", "what earns or loses attention in the first glance"},
			ScoringLens: "whether the screens would survive a five-second skim in a board meeting",
			Greeting:    "Five-second verdict:",
		}
	case da.PersonaClarity:
		return personaParams{
			Voice:       "a plain-language clarity editor hunting for anything a user has to stop and decode",
			FocusAreas:  []string{"copy and label precision", "cognitive load", "visual noise", "ambiguous affordances"},
			ScoringLens: "how little effort a reader needs to understand every element",
			Greeting:    "Clarity pass over these screens:",
		}
	default:
		// Unknown personas are rejected at session creation; reaching this
		// branch means a session row was written outside ParsePersona.
		return personaParams{
			Voice:       "a careful UX reviewer",
			FocusAreas:  []string{"usability", "clarity", "visual hierarchy"},
			ScoringLens: "overall usability",
			Greeting:    "Review of these screens:",
		}
	}
}
