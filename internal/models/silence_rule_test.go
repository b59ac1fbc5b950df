package models

import (
	"testing"
	"time"
)

func TestMatcher_Matches(t *testing.T) {
	labels := map[string]string{"env": "prod", "service": "checkout-api"}

	tests := []struct {
		name    string
		matcher Matcher
		want    bool
	}{
		{"equal", Matcher{Key: "env", Operator: "=", Value: "prod"}, true},
		{"equal mismatch", Matcher{Key: "env", Operator: "=", Value: "staging"}, false},
		{"not equal", Matcher{Key: "env", Operator: "!=", Value: "staging"}, true},
		{"not equal missing label", Matcher{Key: "team", Operator: "!=", Value: "sre"}, true},
		{"regex", Matcher{Key: "service", Operator: "=~", Value: "checkout-.*"}, true},
		{"regex is anchored", Matcher{Key: "service", Operator: "=~", Value: "checkout"}, false},
		{"not regex", Matcher{Key: "service", Operator: "!~", Value: "payment-.*"}, true},
		{"invalid regex", Matcher{Key: "service", Operator: "=~", Value: "("}, false},
		{"contains", Matcher{Key: "service", Operator: "contains", Value: "out"}, true},
		{"unknown operator", Matcher{Key: "env", Operator: "~~", Value: "prod"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.matcher.Matches(labels); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSilenceRule_ActiveAt_Single(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	rule := &SilenceRule{
		Enabled:  true,
		Type:     SilenceTypeSingle,
		Schedule: SilenceSchedule{StartsAt: &start, EndsAt: &end},
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before", start.Add(-time.Minute), false},
		{"at start", start, true},
		{"inside", start.Add(time.Hour), true},
		{"at end", end, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.ActiveAt(tt.at); got != tt.want {
				t.Errorf("ActiveAt(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}

	rule.Enabled = false
	if rule.ActiveAt(start.Add(time.Hour)) {
		t.Error("disabled rule should never be active")
	}
}

func TestSilenceRule_ActiveAt_RepeatAcrossMidnight(t *testing.T) {
	// Friday 22:00 to 02:00
	rule := &SilenceRule{
		Enabled: true,
		Type:    SilenceTypeRepeat,
		Schedule: SilenceSchedule{
			DaysOfWeek: []int{5},
			StartTime:  "22:00",
			EndTime:    "02:00",
			Timezone:   "UTC",
		},
	}

	friday := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) // a Friday
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"friday evening before window", friday.Add(21 * time.Hour), false},
		{"friday 23:30", friday.Add(23*time.Hour + 30*time.Minute), true},
		{"saturday 01:00", friday.Add(25 * time.Hour), true},
		{"saturday 02:00", friday.Add(26 * time.Hour), false},
		{"saturday 23:00", friday.Add(47 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.ActiveAt(tt.at); got != tt.want {
				t.Errorf("ActiveAt(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestSilenceRule_NextChange(t *testing.T) {
	rule := &SilenceRule{
		Enabled: true,
		Type:    SilenceTypeRepeat,
		Schedule: SilenceSchedule{
			StartTime: "09:00",
			EndTime:   "10:00",
		},
	}

	at := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	next := rule.NextChange(at)
	if next == nil {
		t.Fatal("expected a next change")
	}
	if want := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("NextChange() = %v, want %v", next, want)
	}

	next = rule.NextChange(time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC))
	if want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC); next == nil || !next.Equal(want) {
		t.Errorf("NextChange() = %v, want %v", next, want)
	}
}

func TestSilenceRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    SilenceRule
		wantErr bool
	}{
		{"single ok", SilenceRule{Type: SilenceTypeSingle}, false},
		{"repeat ok", SilenceRule{Type: SilenceTypeRepeat, Schedule: SilenceSchedule{StartTime: "01:00", EndTime: "02:00"}}, false},
		{"repeat bad clock", SilenceRule{Type: SilenceTypeRepeat, Schedule: SilenceSchedule{StartTime: "1am", EndTime: "02:00"}}, true},
		{"repeat bad day", SilenceRule{Type: SilenceTypeRepeat, Schedule: SilenceSchedule{StartTime: "01:00", EndTime: "02:00", DaysOfWeek: []int{7}}}, true},
		{"unknown type", SilenceRule{Type: "cron"}, true},
		{"bad matcher", SilenceRule{Type: SilenceTypeSingle, Matchers: []Matcher{{Key: "a", Operator: "=~", Value: "("}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSilenceRule_MatchesLabels(t *testing.T) {
	rule := &SilenceRule{Matchers: []Matcher{
		{Key: "env", Operator: "=", Value: "prod"},
		{Key: "service", Operator: "contains", Value: "db"},
	}}
	if !rule.MatchesLabels(map[string]string{"env": "prod", "service": "orders-db"}) {
		t.Error("expected all matchers to match")
	}
	if rule.MatchesLabels(map[string]string{"env": "prod", "service": "web"}) {
		t.Error("expected mismatch when one matcher fails")
	}
	if (&SilenceRule{}).MatchesLabels(map[string]string{"env": "prod"}) {
		t.Error("rule without matchers should match nothing")
	}
}
