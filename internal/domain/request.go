package domain

import (
	"fmt"
	"strings"
)

// GenerationRequest is the payload accepted by POST /api/generate-post.
type GenerationRequest struct {
	Topic    string `json:"topic"`
	Industry string `json:"industry"`
	Tone     string `json:"tone"`
	Audience string `json:"audience"`
}

// Normalize trims the topic and fills unset options with the form defaults.
func (r *GenerationRequest) Normalize() {
	if r == nil {
		return
	}
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Industry == "" {
		r.Industry = DefaultIndustry
	}
	if r.Tone == "" {
		r.Tone = DefaultTone
	}
	if r.Audience == "" {
		r.Audience = DefaultAudience
	}
}

// Validate reports ErrEmptyTopic for a blank topic and ErrInvalidOption for
// values outside the enumerated option sets.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return ErrEmptyTopic
	}
	if !ValidIndustry(r.Industry) {
		return fmt.Errorf("%w: industry %q", ErrInvalidOption, r.Industry)
	}
	if !ValidTone(r.Tone) {
		return fmt.Errorf("%w: tone %q", ErrInvalidOption, r.Tone)
	}
	if !ValidAudience(r.Audience) {
		return fmt.Errorf("%w: audience %q", ErrInvalidOption, r.Audience)
	}
	return nil
}
