// Package market handles market identifier parsing and side resolution
// for the two market families.
package market

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/crickbet/wager-engine/internal/model"
)

// Threshold-market side labels. Team-market labels are the team names
// stored on the market itself.
const (
	SideOver  = "over"
	SideUnder = "under"
)

// RunsLine is the over/under line every threshold market is priced
// against: over wins when the over's runs exceed 8.5.
const RunsLine = 8.5

// Market ID formats:
//
//	OU-{overNumber}   threshold market for one over, e.g. OU-14
//	MW-{matchKey}     team market for one match, e.g. MW-IPL2025-MI-CSK
var (
	thresholdRegex = regexp.MustCompile(`^OU-([0-9]+)$`)
	teamRegex      = regexp.MustCompile(`^MW-([A-Za-z0-9-]+)$`)
)

var (
	ErrInvalidID = errors.New("market: invalid market id format")
)

// ID is a parsed market identifier.
type ID struct {
	Raw    string
	Family string
	Key    string // over number or match key
}

// ParseID parses and validates a market identifier string.
func ParseID(raw string) (*ID, error) {
	if m := thresholdRegex.FindStringSubmatch(raw); m != nil {
		return &ID{Raw: raw, Family: model.FamilyThreshold, Key: m[1]}, nil
	}
	if m := teamRegex.FindStringSubmatch(raw); m != nil {
		return &ID{Raw: raw, Family: model.FamilyTeam, Key: m[1]}, nil
	}
	return nil, fmt.Errorf("%w: %s (expected OU-{over} or MW-{matchKey})", ErrInvalidID, raw)
}

// ThresholdID builds the market identifier for one over.
func ThresholdID(overNumber int) string {
	return fmt.Sprintf("OU-%d", overNumber)
}

// TeamID builds the market identifier for one match.
func TeamID(matchKey string) string {
	return fmt.Sprintf("MW-%s", matchKey)
}

// OutcomeForRuns resolves an announced runs total for an over to the
// winning side of its threshold market.
func OutcomeForRuns(runs int) string {
	if float64(runs) > RunsLine {
		return SideOver
	}
	return SideUnder
}
