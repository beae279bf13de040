//go:build go1.18

package domain

import (
	"testing"
)

// FuzzParseHolderID tests that parsing never panics on arbitrary input and
// that an accepted identity always round-trips unchanged.
func FuzzParseHolderID(f *testing.F) {
	f.Add("")
	f.Add("alice")
	f.Add("  warehouse-7  ")
	f.Add("'; DROP TABLE items;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("héllo")

	f.Fuzz(func(t *testing.T, input string) {
		holder, err := ParseHolderID(input)
		if err != nil {
			return
		}

		// Accepted identities satisfy Validate and round-trip.
		if holder.IsNone() {
			t.Error("parse accepted an empty identity")
		}
		if vErr := holder.Validate(); vErr != nil {
			t.Errorf("accepted identity failed Validate: %v", vErr)
		}
		roundTrip, err2 := ParseHolderID(holder.String())
		if err2 != nil {
			t.Errorf("accepted identity failed round-trip: %v", err2)
		}
		if roundTrip != holder {
			t.Error("round-trip changed identity value")
		}
	})
}

// FuzzParseHandle verifies handle parsing rejects everything that is not a
// plain decimal and round-trips everything it accepts.
func FuzzParseHandle(f *testing.F) {
	f.Add("")
	f.Add("0")
	f.Add("1")
	f.Add("18446744073709551615")
	f.Add("-1")
	f.Add("ten")

	f.Fuzz(func(t *testing.T, input string) {
		handle, err := ParseHandle(input)
		if err != nil {
			return
		}

		roundTrip, err2 := ParseHandle(handle.String())
		if err2 != nil {
			t.Errorf("accepted handle failed round-trip: %v", err2)
		}
		if roundTrip != handle {
			t.Error("round-trip changed handle value")
		}
	})
}
