package model

import (
	"fmt"
	"strings"
)

// SequenceType classifies a direct debit batch within its mandate lifecycle.
type SequenceType string

const (
	SequenceFirst     SequenceType = "FRST"
	SequenceRecurring SequenceType = "RCUR"
	SequenceFinal     SequenceType = "FNAL"
	SequenceOneOff    SequenceType = "OOFF"
)

// ParseSequenceType accepts the wire code or its English name.
// An empty string yields SequenceOneOff.
func ParseSequenceType(s string) (SequenceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ooff", "oneoff", "one-off", "one_off":
		return SequenceOneOff, nil
	case "frst", "first":
		return SequenceFirst, nil
	case "rcur", "recurring":
		return SequenceRecurring, nil
	case "fnal", "final":
		return SequenceFinal, nil
	}
	return "", fmt.Errorf("%w: unknown sequence type %q", ErrInvalidArgument, s)
}

// Valid reports whether t is one of the four SEPA sequence codes.
func (t SequenceType) Valid() bool {
	switch t {
	case SequenceFirst, SequenceRecurring, SequenceFinal, SequenceOneOff:
		return true
	}
	return false
}
