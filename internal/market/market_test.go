package market

import (
	"errors"
	"testing"

	"github.com/crickbet/wager-engine/internal/model"
)

func TestParseID_Threshold(t *testing.T) {
	id, err := ParseID("OU-14")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Family != model.FamilyThreshold {
		t.Errorf("expected threshold family, got %s", id.Family)
	}
	if id.Key != "14" {
		t.Errorf("expected key 14, got %s", id.Key)
	}
}

func TestParseID_Team(t *testing.T) {
	id, err := ParseID("MW-IPL2025-MI-CSK")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Family != model.FamilyTeam {
		t.Errorf("expected team family, got %s", id.Family)
	}
	if id.Key != "IPL2025-MI-CSK" {
		t.Errorf("unexpected key: %s", id.Key)
	}
}

func TestParseID_Invalid(t *testing.T) {
	for _, raw := range []string{"", "OU-", "OU-abc", "XX-12", "MW-", "ou-12"} {
		if _, err := ParseID(raw); !errors.Is(err, ErrInvalidID) {
			t.Errorf("expected ErrInvalidID for %q, got %v", raw, err)
		}
	}
}

func TestIDBuilders_RoundTrip(t *testing.T) {
	if got := ThresholdID(7); got != "OU-7" {
		t.Errorf("unexpected threshold id: %s", got)
	}
	if got := TeamID("MI-CSK"); got != "MW-MI-CSK" {
		t.Errorf("unexpected team id: %s", got)
	}
	if _, err := ParseID(ThresholdID(7)); err != nil {
		t.Errorf("built threshold id must parse: %v", err)
	}
	if _, err := ParseID(TeamID("MI-CSK")); err != nil {
		t.Errorf("built team id must parse: %v", err)
	}
}

func TestOutcomeForRuns(t *testing.T) {
	tests := []struct {
		runs int
		want string
	}{
		{0, SideUnder},
		{8, SideUnder},
		{9, SideOver},
		{24, SideOver},
	}
	for _, tt := range tests {
		if got := OutcomeForRuns(tt.runs); got != tt.want {
			t.Errorf("OutcomeForRuns(%d) = %s, want %s", tt.runs, got, tt.want)
		}
	}
}
