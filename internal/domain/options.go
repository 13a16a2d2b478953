package domain

import "slices"

// Industries lists the industry values offered by the form, in display order.
var Industries = []string{
	"Technology", "Healthcare", "Finance", "Education", "Marketing",
	"Sales", "Consulting", "Manufacturing", "Retail", "Media",
}

// Tones lists the tone values offered by the form, in display order.
var Tones = []string{
	"professional", "casual", "inspiring", "educational", "conversational",
}

// Audiences lists the target audience values offered by the form, in display order.
var Audiences = []string{
	"professionals", "software engineers", "data scientists", "managers",
	"entrepreneurs", "students", "executives", "consultants",
}

const (
	DefaultIndustry = "Technology"
	DefaultTone     = "professional"
	DefaultAudience = "professionals"
)

func ValidIndustry(v string) bool { return slices.Contains(Industries, v) }

func ValidTone(v string) bool { return slices.Contains(Tones, v) }

func ValidAudience(v string) bool { return slices.Contains(Audiences, v) }
