package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, matching the catalog feed.
	decimal.MarshalJSONWithoutQuotes = true
}

// InstantKind records which representation a stored timestamp arrived in.
type InstantKind int

const (
	InstantMissing InstantKind = iota
	InstantISO
	InstantEpochMillis
	InstantStoreTimestamp
	InstantNative
	InstantInvalid
)

const (
	InvalidDate = "Invalid Date"
	MissingDate = "N/A"
)

// Instant is a timestamp read from the document store. Stored documents carry
// timestamps in several shapes; all of them are resolved into one time.Time
// when the document is decoded. Values that cannot be resolved are kept as
// invalid instants instead of failing the decode.
type Instant struct {
	t    time.Time
	kind InstantKind
}

// At returns a valid instant for t.
func At(t time.Time) Instant {
	return Instant{t: t, kind: InstantNative}
}

// Now returns the current instant.
func Now() Instant {
	return At(time.Now())
}

// maxEpochMillis is the widest offset from the Unix epoch a browser Date
// accepts, 100,000,000 days either way.
const maxEpochMillis = 8.64e15

// EpochMillis returns the instant for a millisecond Unix timestamp.
func EpochMillis(ms int64) Instant {
	if ms > maxEpochMillis || ms < -maxEpochMillis {
		return Instant{kind: InstantInvalid}
	}
	return Instant{t: time.UnixMilli(ms), kind: InstantEpochMillis}
}

func epochSeconds(sec, nsec int64) Instant {
	if sec > maxEpochMillis/1000 || sec < -maxEpochMillis/1000 {
		return Instant{kind: InstantInvalid}
	}
	return Instant{t: time.Unix(sec, nsec), kind: InstantStoreTimestamp}
}

// ParseInstant resolves an ISO-8601 string.
func ParseInstant(s string) Instant {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Instant{t: t, kind: InstantISO}
		}
	}
	return Instant{kind: InstantInvalid}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02",
}

func (i Instant) Time() time.Time { return i.t }

func (i Instant) Kind() InstantKind { return i.kind }

// Valid reports whether the instant resolved to a real point in time.
func (i Instant) Valid() bool {
	return i.kind != InstantMissing && i.kind != InstantInvalid
}

// Before orders instants; unresolved instants sort before every valid one.
func (i Instant) Before(o Instant) bool {
	switch {
	case !i.Valid() && !o.Valid():
		return false
	case !i.Valid():
		return true
	case !o.Valid():
		return false
	}
	return i.t.Before(o.t)
}

// Format renders the instant in loc, or a placeholder when it is unresolved.
func (i Instant) Format(layout string, loc *time.Location) string {
	switch i.kind {
	case InstantMissing:
		return MissingDate
	case InstantInvalid:
		return InvalidDate
	}
	if loc != nil {
		return i.t.In(loc).Format(layout)
	}
	return i.t.Format(layout)
}

// MarshalJSON writes valid instants as RFC 3339 strings. Unresolved instants
// are written as null.
func (i Instant) MarshalJSON() ([]byte, error) {
	if !i.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(i.t.UTC().Format(time.RFC3339Nano))
}

type storeTimestamp struct {
	Seconds         *int64 `json:"seconds"`
	Nanoseconds     int64  `json:"nanoseconds"`
	UnderSeconds    *int64 `json:"_seconds"`
	UnderNanosecond int64  `json:"_nanoseconds"`
}

// UnmarshalJSON accepts an ISO string, epoch milliseconds, or a
// {seconds, nanoseconds} timestamp object. It never returns an error for an
// unrecognised shape.
func (i *Instant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = Instant{kind: InstantMissing}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*i = Instant{kind: InstantInvalid}
			return nil
		}
		if s == "" {
			*i = Instant{kind: InstantMissing}
			return nil
		}
		*i = ParseInstant(s)
	case '{':
		var ts storeTimestamp
		if err := json.Unmarshal(data, &ts); err != nil {
			*i = Instant{kind: InstantInvalid}
			return nil
		}
		switch {
		case ts.Seconds != nil:
			*i = epochSeconds(*ts.Seconds, ts.Nanoseconds)
		case ts.UnderSeconds != nil:
			*i = epochSeconds(*ts.UnderSeconds, ts.UnderNanosecond)
		default:
			*i = Instant{kind: InstantInvalid}
		}
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil || math.IsNaN(f) || math.Abs(f) > maxEpochMillis {
			*i = Instant{kind: InstantInvalid}
			return nil
		}
		*i = EpochMillis(int64(f))
	}
	return nil
}
