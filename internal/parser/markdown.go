package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	asteriskRe   = regexp.MustCompile(`\*+`)
	underlineRe  = regexp.MustCompile(`__([^_\n]+?)__`)
	headingRe    = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
	monthRe      = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept?|oct|nov|dec)\.?\s+\d{1,2}(st|nd|rd|th)?\b`)
	weekdayRe    = regexp.MustCompile(`(?i)^\s*(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)\.?,?\s+`)
	ordinalRe    = regexp.MustCompile(`(?i)(\d{1,2})(st|nd|rd|th)\b`)
	yearRe       = regexp.MustCompile(`\b\d{4}\b`)
	labelNoiseRe = regexp.MustCompile(`[\[\]()]`)
)

// StripMarkdown removes emphasis markers ("**", "*", "__") and heading
// hashes. Hashtags are left alone. Applying it twice is a no-op.
func StripMarkdown(s string) string {
	for {
		next := asteriskRe.ReplaceAllString(s, "")
		next = underlineRe.ReplaceAllString(next, "$1")
		next = headingRe.ReplaceAllString(next, "")
		if next == s {
			return s
		}
		s = next
	}
}

// ContainsMonth reports whether s names a month followed by a day number.
func ContainsMonth(s string) bool {
	return monthRe.MatchString(s)
}

// ParseDateLabel converts a human-readable date label such as
// "Monday, October 6, 2025" into a date. Labels without a year are resolved
// against ref's year.
func ParseDateLabel(label string, ref time.Time) (time.Time, bool) {
	s := strings.TrimSpace(labelNoiseRe.ReplaceAllString(StripMarkdown(label), ""))
	s = strings.TrimSuffix(s, ":")
	if s == "" {
		return time.Time{}, false
	}
	s = weekdayRe.ReplaceAllString(s, "")
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = strings.TrimSpace(s)

	if !yearRe.MatchString(s) {
		s = s + ", " + ref.Format("2006")
	}

	t, err := dateparse.ParseIn(s, ref.Location())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
