package prompts

import (
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Persona wording is configuration data, not pipeline logic. An operator can
// override the built-in voice/focus text per persona by pointing
// PERSONA_PROMPT_CONFIG at a YAML file:
//
//	strategic:
//	  voice: "..."
//	  focus_areas: ["...", "..."]
//	  scoring_lens: "..."
//	  greeting: "..."
type personaOverride struct {
	Voice       string   `yaml:"voice"`
	FocusAreas  []string `yaml:"focus_areas"`
	ScoringLens string   `yaml:"scoring_lens"`
	Greeting    string   `yaml:"greeting"`
}

var (
	overridesOnce sync.Once
	overrides     map[string]personaOverride
)

func loadOverrides() map[string]personaOverride {
	overridesOnce.Do(func() {
		path := strings.TrimSpace(os.Getenv("PERSONA_PROMPT_CONFIG"))
		if path == "" {
			return
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return
		}
		var parsed map[string]personaOverride
		if err := yaml.Unmarshal(raw, &parsed); err != nil {
			return
		}
		overrides = parsed
	})
	return overrides
}

func applyOverride(persona string, p personaParams) personaParams {
	ov, ok := loadOverrides()[persona]
	if !ok {
		return p
	}
	if strings.TrimSpace(ov.Voice) != "" {
		p.Voice = strings.TrimSpace(ov.Voice)
	}
	if len(ov.FocusAreas) > 0 {
		areas := make([]string, 0, len(ov.FocusAreas))
		for _, a := range ov.FocusAreas {
			if a = strings.TrimSpace(a); a != "" {
				areas = append(areas, a)
			}
		}
		if len(areas) > 0 {
			p.FocusAreas = areas
		}
	}
	if strings.TrimSpace(ov.ScoringLens) != "" {
		p.ScoringLens = strings.TrimSpace(ov.ScoringLens)
	}
	if strings.TrimSpace(ov.Greeting) != "" {
		p.Greeting = strings.TrimSpace(ov.Greeting)
	}
	return p
}
