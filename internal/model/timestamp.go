// Package model holds the wire and domain types shared by every layer of
// syncd: Timestamp, FileDescriptor, FileEvent, WatchGroup, Client,
// ClientWatchBinding, and Instruction.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNegativeTimestamp is returned when deserializing a negative number
// into a Timestamp.
var ErrNegativeTimestamp = errors.New("model: timestamp must be non-negative")

// Timestamp is a non-negative count of milliseconds since the Unix epoch,
// UTC. It has total ordering and equality as a plain integer.
type Timestamp int64

// Now returns the current system time as a Timestamp.
func Now() Timestamp {
	return FromTime(time.Now())
}

// FromTime converts a time.Time to a Timestamp via its UnixMilli value.
func FromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

// Time converts the Timestamp back to a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

// Before reports whether t is strictly earlier than other.
func (t Timestamp) Before(other Timestamp) bool {
	return t < other
}

// String formats the Timestamp in the local timezone.
func (t Timestamp) String() string {
	return t.Time().Local().Format(time.RFC3339Nano)
}

// MarshalJSON encodes the Timestamp as a raw JSON integer.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(t))
}

// UnmarshalJSON decodes a raw JSON integer into the Timestamp, rejecting
// negative values.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("model: decoding timestamp: %w", err)
	}

	if v < 0 {
		return ErrNegativeTimestamp
	}

	*t = Timestamp(v)

	return nil
}
