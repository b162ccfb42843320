package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"server/internal/domain"
)

// subjectTemplates holds the fixed description interpolated for each category.
var subjectTemplates = map[domain.SubjectCategory]string{
	domain.SubjectPortrait: "a close-up portrait of a local resident",
	domain.SubjectHumans:   "people going about their everyday life",
	domain.SubjectNature:   "the surrounding landscape and wildlife",
}

// Composer builds the deterministic base prompt. Given the same location,
// weather, and subject it always produces the same string; the enhancer may
// refine it but the base prompt is the guaranteed fallback.
type Composer struct {
	titler cases.Caser
}

// NewComposer constructs a Composer.
func NewComposer() *Composer {
	return &Composer{titler: cases.Title(language.Und)}
}

// Compose renders the base prompt. The result is never empty.
func (c *Composer) Compose(loc domain.ResolvedLocation, weather domain.WeatherSnapshot, subject domain.SubjectCategory, custom string) string {
	var b strings.Builder

	b.WriteString("A photorealistic photograph of ")
	b.WriteString(c.subjectDescription(subject, custom))
	b.WriteString(" ")
	b.WriteString(c.placeDescription(loc))
	b.WriteString(". ")
	b.WriteString(c.weatherDescription(weather))

	if weather.Narrative != "" {
		b.WriteString(" ")
		b.WriteString(weather.Narrative)
	}

	return b.String()
}

func (c *Composer) subjectDescription(subject domain.SubjectCategory, custom string) string {
	if subject == domain.SubjectCustom {
		if trimmed := strings.TrimSpace(custom); trimmed != "" {
			return trimmed
		}
	}
	if tmpl, ok := subjectTemplates[subject]; ok {
		return tmpl
	}
	return subjectTemplates[domain.SubjectPortrait]
}

func (c *Composer) placeDescription(loc domain.ResolvedLocation) string {
	name := strings.TrimSpace(loc.Name)
	if name == "" {
		return fmt.Sprintf("at coordinates %s, %s",
			strconv.FormatFloat(loc.Latitude, 'f', 4, 64),
			strconv.FormatFloat(loc.Longitude, 'f', 4, 64))
	}
	if loc.Country != "" && !strings.EqualFold(loc.Country, name) {
		return fmt.Sprintf("in %s, %s", name, c.titler.String(loc.Country))
	}
	return fmt.Sprintf("in %s", name)
}

func (c *Composer) weatherDescription(weather domain.WeatherSnapshot) string {
	if !weather.Known() {
		return "The current weather conditions are unknown."
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("The weather is %s at %s degrees Celsius", weather.Condition, weather.Temperature))
	if weather.WindSpeed != nil {
		parts = append(parts, fmt.Sprintf("wind %s m/s", strconv.FormatFloat(*weather.WindSpeed, 'f', 1, 64)))
	}
	if weather.CloudCoverPct != nil {
		parts = append(parts, fmt.Sprintf("cloud cover %s%%", strconv.FormatFloat(*weather.CloudCoverPct, 'f', 0, 64)))
	}
	return strings.Join(parts, ", ") + "."
}
