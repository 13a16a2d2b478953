package present

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"postcreator/internal/domain"
)

// WordLimit is the largest word count shown without a warning.
const WordLimit = 200

// WordCount counts whitespace-separated non-empty tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Chip is a short labelled badge displayed under the post.
type Chip struct {
	Label   string
	Warning bool
	Outline bool
}

// WordIndicator renders the word count badge, flagged once the count exceeds WordLimit.
func WordIndicator(text string) Chip {
	n := WordCount(text)
	return Chip{Label: fmt.Sprintf("%d words", n), Warning: n > WordLimit}
}

// Chips returns the word count badge followed by the echoed parameters.
func Chips(result *domain.GenerationResult) []Chip {
	if result == nil {
		return nil
	}
	return []Chip{
		WordIndicator(result.Post),
		{Label: "Topic: " + result.Topic, Outline: true},
		{Label: "Industry: " + result.Industry, Outline: true},
		{Label: "Tone: " + result.Tone, Outline: true},
		{Label: "Audience: " + result.Audience, Outline: true},
	}
}

// OptionLabel turns an option value such as "software engineers" into its
// display label. The submitted value is never altered. Casers are stateful,
// so one is built per call.
func OptionLabel(value string) string {
	return cases.Title(language.Und).String(value)
}

// RenderText writes the post verbatim followed by the chip line.
func RenderText(w io.Writer, result *domain.GenerationResult) error {
	if result == nil {
		return nil
	}
	labels := make([]string, 0, 5)
	for _, chip := range Chips(result) {
		label := chip.Label
		if chip.Warning {
			label += " (over " + fmt.Sprint(WordLimit) + ")"
		}
		labels = append(labels, "["+label+"]")
	}
	_, err := fmt.Fprintf(w, "%s\n\n%s\n", result.Post, strings.Join(labels, " "))
	return err
}
