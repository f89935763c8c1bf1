// Package timestamp converts between chapter offsets expressed as
// HH:MM:SS.mmm strings, whole milliseconds and the Timestamp type.
//
// A Timestamp is an offset from the start of the media rather than a
// wall-clock time, so hours are unbounded: 25:00:00.000 is a valid chapter
// start for long content.
package timestamp

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/hbomb79/ffmeta/internal/errs"
)

// Timestamp is an offset from zero with millisecond resolution.
type Timestamp int64

const (
	millisPerSecond = 1000
	millisPerMinute = 60 * millisPerSecond
	millisPerHour   = 60 * millisPerMinute

	// MaxHour is the largest hour a Timestamp can hold without overflowing.
	MaxHour = (math.MaxInt64 - millisPerHour) / millisPerHour
)

var (
	strictPattern   = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})\.(\d{3})$`)
	flexiblePattern = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{1,2})(?:\.(\d{0,3}))?$`)
)

// New builds a Timestamp from its components, failing if minute, second or
// millisecond are outside of their natural range or hour exceeds MaxHour.
func New(hour, minute, second, millisecond int) (Timestamp, error) {
	if int64(hour) > MaxHour {
		return 0, fmt.Errorf("%w: hour %d exceeds %d", errs.ErrFormat, hour, int64(MaxHour))
	}
	if hour < 0 || minute < 0 || minute >= 60 || second < 0 || second >= 60 || millisecond < 0 || millisecond >= 1000 {
		return 0, fmt.Errorf("%w: timestamp components %d:%d:%d.%d out of range", errs.ErrFormat, hour, minute, second, millisecond)
	}

	return Timestamp(int64(hour)*millisPerHour + int64(minute)*millisPerMinute + int64(second)*millisPerSecond + int64(millisecond)), nil
}

// FromMilliseconds returns the Timestamp for an offset of ms milliseconds.
func FromMilliseconds(ms int64) Timestamp { return Timestamp(ms) }

// Milliseconds returns the total offset in milliseconds.
func (ts Timestamp) Milliseconds() int64 { return int64(ts) }

// Duration returns the offset as a time.Duration.
func (ts Timestamp) Duration() time.Duration { return time.Duration(ts) * time.Millisecond }

func (ts Timestamp) Hour() int        { return int(int64(ts) / millisPerHour) }
func (ts Timestamp) Minute() int      { return int(int64(ts) % millisPerHour / millisPerMinute) }
func (ts Timestamp) Second() int      { return int(int64(ts) % millisPerMinute / millisPerSecond) }
func (ts Timestamp) Millisecond() int { return int(int64(ts) % millisPerSecond) }

// String formats the timestamp as HH:MM:SS.mmm.
func (ts Timestamp) String() string { return Format(ts) }

// MarshalText implements encoding.TextMarshaler using Format.
func (ts Timestamp) MarshalText() ([]byte, error) {
	return []byte(Format(ts)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using Parse.
func (ts *Timestamp) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*ts = parsed
	return nil
}

// Format renders the timestamp as HH:MM:SS.mmm. The hour is zero-padded to
// two digits but may be wider for offsets of 100 hours or more.
func Format(ts Timestamp) string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ts.Hour(), ts.Minute(), ts.Second(), ts.Millisecond())
}

// Parse accepts only the strict HH:MM:SS.mmm form produced by Format.
func Parse(text string) (Timestamp, error) {
	groups := strictPattern.FindStringSubmatch(text)
	if groups == nil {
		return 0, fmt.Errorf("%w: %q is not a valid HH:MM:SS.mmm timestamp", errs.ErrFormat, text)
	}

	return fromGroups(text, groups[1], groups[2], groups[3], groups[4])
}

// ParseFlexible accepts the looser forms people type by hand: the hours
// group is optional, minutes and seconds may be a single digit and the
// fractional part may carry zero to three digits (".5" is 5 milliseconds,
// mirroring how the value is read rather than as a decimal fraction).
func ParseFlexible(text string) (Timestamp, error) {
	groups := flexiblePattern.FindStringSubmatch(text)
	if groups == nil {
		return 0, fmt.Errorf("%w: %q is not a valid timestamp", errs.ErrFormat, text)
	}

	return fromGroups(text, groups[1], groups[2], groups[3], groups[4])
}

// FormatMilliseconds is shorthand for Format(FromMilliseconds(ms)).
func FormatMilliseconds(ms int64) string {
	return Format(FromMilliseconds(ms))
}

// ParseMilliseconds parses a flexible timestamp and returns its offset in
// milliseconds.
func ParseMilliseconds(text string) (int64, error) {
	ts, err := ParseFlexible(text)
	if err != nil {
		return 0, err
	}

	return ts.Milliseconds(), nil
}

func fromGroups(text, hours, minutes, seconds, millis string) (Timestamp, error) {
	values := make([]int, 4)
	for i, group := range []string{hours, minutes, seconds, millis} {
		if group == "" {
			continue
		}

		v, err := strconv.Atoi(group)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a valid timestamp: %s", errs.ErrFormat, text, err.Error())
		}
		values[i] = v
	}

	return New(values[0], values[1], values[2], values[3])
}
