package main

import (
	"fmt"
	"strconv"
	"time"
)

// optional flags stay nil unless given on the command line, so unset
// filters never reach the API.

type optInt struct{ v *int }

func (f *optInt) String() string {
	if f.v == nil {
		return ""
	}
	return strconv.Itoa(*f.v)
}

func (f *optInt) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %q", s)
	}
	f.v = &n
	return nil
}

type optBool struct{ v *bool }

func (f *optBool) String() string {
	if f.v == nil {
		return ""
	}
	return strconv.FormatBool(*f.v)
}

func (f *optBool) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("not a boolean: %q", s)
	}
	f.v = &b
	return nil
}

func (f *optBool) IsBoolFlag() bool { return true }

type optString struct{ v *string }

func (f *optString) String() string {
	if f.v == nil {
		return ""
	}
	return *f.v
}

func (f *optString) Set(s string) error {
	f.v = &s
	return nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

type optTime struct{ v *time.Time }

func (f *optTime) String() string {
	if f.v == nil {
		return ""
	}
	return f.v.Format(time.RFC3339)
}

// Set accepts RFC 3339 or a local "2006-01-02T15:04" style timestamp.
func (f *optTime) Set(s string) error {
	t, err := parseTime(s)
	if err != nil {
		return err
	}
	f.v = &t
	return nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q (use RFC 3339 or 2006-01-02T15:04)", s)
}
