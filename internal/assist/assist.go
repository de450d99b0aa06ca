// Package assist implements the small conversational helpers: time-of-day
// greetings and keyword-based emoji decoration.
package assist

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidHour = errors.New("hour must be between 0 and 23")
	ErrEmptyText   = errors.New("text cannot be empty")
)

// Greeter picks a greeting for an hour of day. When no hour is supplied it
// uses the current wall clock in its configured time zone.
type Greeter struct {
	location *time.Location
	now      func() time.Time
}

func NewGreeter(timeZone string) (*Greeter, error) {
	location, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", timeZone, err)
	}
	return &Greeter{location: location, now: time.Now}, nil
}

// Greet returns the greeting for the given hour. A nil hour means "now" in
// the greeter's time zone.
func (g *Greeter) Greet(hour *int) (string, error) {
	resolved := 0
	if hour != nil {
		resolved = *hour
	} else {
		resolved = g.now().In(g.location).Hour()
	}

	if resolved < 0 || resolved > 23 {
		return "", ErrInvalidHour
	}

	switch {
	case resolved >= 5 && resolved < 12:
		return "Good morning!", nil
	case resolved >= 12 && resolved < 18:
		return "Good afternoon!", nil
	case resolved >= 18 && resolved < 22:
		return "Good evening!", nil
	default:
		return "Good night!", nil
	}
}

type emojiRule struct {
	keyword string
	emoji   string
}

// Lookup order is part of the contract: "morning" wins over "hi" even when
// both keywords appear in the text.
var emojiRules = []emojiRule{
	{"morning", "☀️"},
	{"afternoon", "🌤️"},
	{"evening", "🌙"},
	{"night", "🌜"},
	{"hello", "👋"},
	{"hi", "😊"},
	{"hey", "🙌"},
}

const fallbackEmoji = "✨"

// Decorate trims the text and appends the emoji matching the first keyword
// found in it, or a sparkle when nothing matches.
func Decorate(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyText
	}

	lowered := strings.ToLower(trimmed)
	emoji := fallbackEmoji
	for _, rule := range emojiRules {
		if strings.Contains(lowered, rule.keyword) {
			emoji = rule.emoji
			break
		}
	}

	return trimmed + " " + emoji, nil
}
