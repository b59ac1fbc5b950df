package models

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// SilenceType selects how a silence schedule is interpreted
type SilenceType string

const (
	SilenceTypeSingle SilenceType = "single"
	SilenceTypeRepeat SilenceType = "repeat"
)

// Matcher operators
const (
	MatchEqual    = "="
	MatchNotEqual = "!="
	MatchRegex    = "=~"
	MatchNotRegex = "!~"
	MatchContains = "contains"
)

// Matcher is one label predicate of a silence rule
type Matcher struct {
	Key      string `json:"key"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// Matches evaluates the predicate against a label set. A missing label is the empty string.
func (m Matcher) Matches(labels map[string]string) bool {
	v := labels[m.Key]
	switch m.Operator {
	case MatchEqual, "":
		return v == m.Value
	case MatchNotEqual:
		return v != m.Value
	case MatchRegex, MatchNotRegex:
		re, err := regexp.Compile("^(?:" + m.Value + ")$")
		if err != nil {
			return false
		}
		return re.MatchString(v) == (m.Operator == MatchRegex)
	case MatchContains:
		return strings.Contains(v, m.Value)
	default:
		return false
	}
}

// Validate checks the operator and, for regex operators, the pattern
func (m Matcher) Validate() error {
	if m.Key == "" {
		return fmt.Errorf("matcher key is required")
	}
	switch m.Operator {
	case MatchEqual, MatchNotEqual, MatchContains:
		return nil
	case MatchRegex, MatchNotRegex:
		if _, err := regexp.Compile(m.Value); err != nil {
			return fmt.Errorf("invalid regex for %q: %v", m.Key, err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported matcher operator %q", m.Operator)
	}
}

// SilenceSchedule is either a one-off window (starts_at/ends_at) or a weekly
// recurring window (days_of_week with start_time/end_time in HH:MM).
// Weekdays are numbered 0 (Sunday) to 6.
type SilenceSchedule struct {
	StartsAt   *time.Time `json:"starts_at,omitempty"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
	DaysOfWeek []int      `json:"days_of_week,omitempty"`
	StartTime  string     `json:"start_time,omitempty"`
	EndTime    string     `json:"end_time,omitempty"`
	Timezone   string     `json:"timezone,omitempty"`
}

// SilenceRule suppresses incidents whose labels satisfy every matcher while the schedule is active
type SilenceRule struct {
	Base
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Enabled     bool            `json:"enabled"`
	Type        SilenceType     `json:"type"`
	Matchers    []Matcher       `json:"matchers"`
	Schedule    SilenceSchedule `json:"schedule"`
	CreatedBy   string          `json:"created_by,omitempty"`
}

// Normalize keeps matchers encoded as an array
func (s *SilenceRule) Normalize() {
	if s.Matchers == nil {
		s.Matchers = []Matcher{}
	}
}

// Validate checks the type-specific schedule fields and every matcher
func (s *SilenceRule) Validate() error {
	for _, m := range s.Matchers {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	switch s.Type {
	case SilenceTypeSingle:
		if s.Schedule.StartsAt != nil && s.Schedule.EndsAt != nil && !s.Schedule.EndsAt.After(*s.Schedule.StartsAt) {
			return fmt.Errorf("ends_at must be after starts_at")
		}
	case SilenceTypeRepeat:
		if _, err := parseClock(s.Schedule.StartTime); err != nil {
			return fmt.Errorf("start_time: %v", err)
		}
		if _, err := parseClock(s.Schedule.EndTime); err != nil {
			return fmt.Errorf("end_time: %v", err)
		}
		for _, d := range s.Schedule.DaysOfWeek {
			if d < 0 || d > 6 {
				return fmt.Errorf("days_of_week values must be between 0 and 6")
			}
		}
		if s.Schedule.Timezone != "" {
			if _, err := time.LoadLocation(s.Schedule.Timezone); err != nil {
				return fmt.Errorf("unknown timezone %q", s.Schedule.Timezone)
			}
		}
	default:
		return fmt.Errorf("type must be one of: single repeat")
	}
	return nil
}

// MatchesLabels reports whether every matcher accepts labels. A rule without matchers matches nothing.
func (s *SilenceRule) MatchesLabels(labels map[string]string) bool {
	if len(s.Matchers) == 0 {
		return false
	}
	for _, m := range s.Matchers {
		if !m.Matches(labels) {
			return false
		}
	}
	return true
}

// HasMatcher reports whether the rule carries an identical matcher
func (s *SilenceRule) HasMatcher(want Matcher) bool {
	return slices.Contains(s.Matchers, want)
}

// ActiveAt reports whether the rule is enabled and its schedule covers t
func (s *SilenceRule) ActiveAt(t time.Time) bool {
	if !s.Enabled {
		return false
	}
	return s.scheduleCovers(t, s.location())
}

// NextChange returns the next instant, within a week of t, at which ActiveAt flips
func (s *SilenceRule) NextChange(t time.Time) *time.Time {
	if !s.Enabled {
		return nil
	}
	loc := s.location()
	current := s.scheduleCovers(t, loc)

	if s.Type == SilenceTypeSingle {
		sch := s.Schedule
		switch {
		case !current && sch.StartsAt != nil && t.Before(*sch.StartsAt):
			next := *sch.StartsAt
			return &next
		case current && sch.EndsAt != nil:
			next := *sch.EndsAt
			return &next
		}
		return nil
	}

	step := t.Truncate(time.Minute).Add(time.Minute)
	limit := t.Add(8 * 24 * time.Hour)
	for ; step.Before(limit); step = step.Add(time.Minute) {
		if s.scheduleCovers(step, loc) != current {
			next := step
			return &next
		}
	}
	return nil
}

func (s *SilenceRule) location() *time.Location {
	if s.Schedule.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s *SilenceRule) scheduleCovers(t time.Time, loc *time.Location) bool {
	sch := s.Schedule
	if sch.StartsAt != nil && t.Before(*sch.StartsAt) {
		return false
	}
	if sch.EndsAt != nil && !t.Before(*sch.EndsAt) {
		return false
	}
	if s.Type != SilenceTypeRepeat {
		return s.Type == SilenceTypeSingle
	}

	start, err := parseClock(sch.StartTime)
	if err != nil {
		return false
	}
	end, err := parseClock(sch.EndTime)
	if err != nil {
		return false
	}

	local := t.In(loc)
	minute := local.Hour()*60 + local.Minute()
	today := int(local.Weekday())
	yesterday := (today + 6) % 7

	switch {
	case start == end:
		return s.onDay(today)
	case start < end:
		return s.onDay(today) && minute >= start && minute < end
	default:
		// window crosses midnight: the tail belongs to the previous day
		if minute >= start {
			return s.onDay(today)
		}
		return minute < end && s.onDay(yesterday)
	}
}

func (s *SilenceRule) onDay(day int) bool {
	if len(s.Schedule.DaysOfWeek) == 0 {
		return true
	}
	return slices.Contains(s.Schedule.DaysOfWeek, day)
}

// parseClock converts HH:MM into minutes after midnight
func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}
