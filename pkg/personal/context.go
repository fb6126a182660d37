// Package personal builds the consultant context that accompanies a reading:
// age, local time of day, season and upcoming special dates.
package personal

import (
	"fmt"
	"strings"
	"time"

	"bottarot-be/internal/entity"
)

const DefaultTimezone = "America/Mexico_City"

// how far ahead birthdays and holidays are announced
const lookaheadDays = 7

type holiday struct {
	name  string
	month time.Month
	day   int
}

var holidays = []holiday{
	{"Navidad", time.December, 25},
	{"Año Nuevo", time.January, 1},
	{"Día de la Madre", time.May, 10},
	{"Día del Padre", time.June, 15},
	{"Día de San Valentín", time.February, 14},
	{"Halloween", time.October, 31},
	{"Día de Muertos", time.November, 2},
}

type TimeContext struct {
	Greeting string `json:"greeting"`
	Season   string `json:"season"`
	Hour     int    `json:"hour"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

type ProfileSummary struct {
	Name     string `json:"name"`
	Age      *int   `json:"age"`
	Gender   string `json:"gender"`
	Language string `json:"language"`
	Timezone string `json:"timezone"`
}

type Context struct {
	HasProfile   bool            `json:"has_profile"`
	Text         string          `json:"context"`
	Profile      *ProfileSummary `json:"profile,omitempty"`
	Time         *TimeContext    `json:"time_context,omitempty"`
	SpecialDates []string        `json:"special_dates,omitempty"`
}

// Location resolves tz, falling back to the default zone and then UTC.
func Location(tz string) *time.Location {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// Age in whole years at now.
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || now.Month() == dob.Month() && now.Day() < dob.Day() {
		age--
	}
	return age
}

func Greeting(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "Buenos días"
	case hour >= 12 && hour < 18:
		return "Buenas tardes"
	default:
		return "Buenas noches"
	}
}

// Season assumes the northern hemisphere.
func Season(m time.Month) string {
	switch {
	case m >= time.March && m <= time.May:
		return "primavera"
	case m >= time.June && m <= time.August:
		return "verano"
	case m >= time.September && m <= time.November:
		return "otoño"
	default:
		return "invierno"
	}
}

func TimeContextAt(now time.Time, tz string) TimeContext {
	local := now.In(Location(tz))
	return TimeContext{
		Greeting: Greeting(local.Hour()),
		Season:   Season(local.Month()),
		Hour:     local.Hour(),
		Date:     local.Format("2/1/2006"),
		Time:     local.Format("15:04"),
	}
}

// daysUntil counts calendar days from today to month/day, rolling over to
// next year once this year's date has passed.
func daysUntil(today time.Time, month time.Month, day int) int {
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	target := time.Date(today.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if target.Before(start) {
		target = time.Date(today.Year()+1, month, day, 0, 0, 0, 0, time.UTC)
	}
	return int(target.Sub(start).Hours() / 24)
}

// SpecialDates lists the birthday and holidays falling within the next week
// in the user's zone, birthday first.
func SpecialDates(dob *time.Time, now time.Time, tz string) []string {
	local := now.In(Location(tz))
	var out []string

	if dob != nil {
		switch d := daysUntil(local, dob.Month(), dob.Day()); {
		case d == 0:
			out = append(out, "¡Hoy es tu cumpleaños!")
		case d <= lookaheadDays:
			out = append(out, fmt.Sprintf("Tu cumpleaños está muy cerca (en %d días)", d))
		}
	}

	for _, h := range holidays {
		switch d := daysUntil(local, h.month, h.day); {
		case d == 0:
			out = append(out, fmt.Sprintf("¡Hoy es %s!", h.name))
		case d <= lookaheadDays:
			out = append(out, fmt.Sprintf("Se acerca %s (en %d días)", h.name, d))
		}
	}
	return out
}

// Build assembles the context for profile at now. A nil profile yields the
// anonymous context.
func Build(profile *entity.Profile, now time.Time) Context {
	if profile == nil {
		return Context{Text: "El usuario no tiene perfil completo disponible."}
	}

	summary := &ProfileSummary{
		Name:     profile.Name,
		Gender:   profile.Gender,
		Language: profile.Language,
		Timezone: profile.Timezone,
	}
	if profile.DateOfBirth != nil {
		age := Age(*profile.DateOfBirth, now.In(Location(profile.Timezone)))
		summary.Age = &age
	}
	tc := TimeContextAt(now, profile.Timezone)
	special := SpecialDates(profile.DateOfBirth, now, profile.Timezone)

	return Context{
		HasProfile:   true,
		Text:         promptText(summary, tc, special),
		Profile:      summary,
		Time:         &tc,
		SpecialDates: special,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func promptText(p *ProfileSummary, tc TimeContext, special []string) string {
	age := "No especificada"
	if p.Age != nil && *p.Age > 0 {
		age = fmt.Sprintf("%d años", *p.Age)
	}

	var b strings.Builder
	b.WriteString("INFORMACIÓN PERSONAL DEL CONSULTANTE:\n")
	fmt.Fprintf(&b, "- Nombre: %s\n", p.Name)
	fmt.Fprintf(&b, "- Edad: %s\n", age)
	fmt.Fprintf(&b, "- Género: %s\n", orDefault(p.Gender, "No especificado"))
	fmt.Fprintf(&b, "- Idioma preferido: %s\n", orDefault(p.Language, "español"))
	fmt.Fprintf(&b, "- Zona horaria: %s\n", orDefault(p.Timezone, "No especificada"))

	b.WriteString("\nCONTEXTO TEMPORAL:\n")
	fmt.Fprintf(&b, "- %s, son las %s\n", tc.Greeting, tc.Time)
	fmt.Fprintf(&b, "- Fecha actual: %s\n", tc.Date)
	fmt.Fprintf(&b, "- Estación del año: %s\n", tc.Season)

	if len(special) > 0 {
		b.WriteString("\nFECHAS ESPECIALES:\n")
		for _, d := range special {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}

	b.WriteString("\nINSTRUCCIONES PARA LA INTERPRETACIÓN:\n")
	b.WriteString("- Saluda al consultante por su nombre usando el saludo apropiado para la hora\n")
	b.WriteString("- Considera su edad para ajustar el tono y los consejos\n")
	b.WriteString("- Ten en cuenta las fechas especiales si son relevantes para la consulta\n")
	b.WriteString("- Usa un lenguaje apropiado para su género y edad\n")
	b.WriteString("- Mantén un tono místico pero personal y cercano")
	return b.String()
}

// PersonalizedGreeting opens a reading.
func (c Context) PersonalizedGreeting() string {
	if !c.HasProfile {
		return "Bienvenido al oráculo"
	}
	greeting := fmt.Sprintf("%s, %s", c.Time.Greeting, c.Profile.Name)
	if len(c.SpecialDates) > 0 {
		greeting += ". " + c.SpecialDates[0]
	}
	return greeting
}

// Summary is the one-line form used in logs.
func (c Context) Summary() string {
	if !c.HasProfile {
		return "Sin perfil personal"
	}
	age := "?"
	if c.Profile.Age != nil {
		age = fmt.Sprint(*c.Profile.Age)
	}
	return fmt.Sprintf("%s, %s años, %s, %d fechas especiales",
		c.Profile.Name, age, strings.ToLower(c.Time.Greeting), len(c.SpecialDates))
}
