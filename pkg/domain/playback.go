package domain

import "strings"

// minTimestampMillis is the smallest timestamp accepted as
// millisecond-scale. Anything below it is a seconds-scale value sent
// by a confused client.
const minTimestampMillis = 1597625975267

// trackURIPrefix is the only URI scheme the sync broker understands.
const trackURIPrefix = "spotify:track:"

// PlaybackState is the payload hosts publish to their session channel.
// Fields are pointers so a missing field can be told apart from a zero
// value during validation.
type PlaybackState struct {
	Timestamp *int64   `json:"timestamp"`
	URI       *string  `json:"uri"`
	Position  *float64 `json:"position"`
	Playing   *bool    `json:"playing"`
}

// IsEmpty reports whether no field was supplied at all, which callers
// treat as "no initial payload" rather than a malformed one.
func (p *PlaybackState) IsEmpty() bool {
	return p.Timestamp == nil && p.URI == nil && p.Position == nil && p.Playing == nil
}

// Validate checks all fields and reports every problem at once.
func (p *PlaybackState) Validate() error {
	var issues []string

	if p.Timestamp == nil {
		issues = append(issues, "missing timestamp")
	} else if *p.Timestamp < minTimestampMillis {
		issues = append(issues, "timestamp not in milliseconds")
	}

	if p.URI == nil {
		issues = append(issues, "missing uri")
	} else if !strings.HasPrefix(*p.URI, trackURIPrefix) {
		issues = append(issues, "improper uri format")
	}

	if p.Position == nil {
		issues = append(issues, "missing position")
	}

	if p.Playing == nil {
		issues = append(issues, "missing playing state")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
