package domain

import (
	"testing"
	"time"
)

func TestOptionalStates(t *testing.T) {
	var unset Optional[string]
	if unset.IsSet() || unset.IsNull() {
		t.Errorf("zero Optional must be unset, got set=%v null=%v", unset.IsSet(), unset.IsNull())
	}

	null := Null[string]()
	if !null.IsSet() || !null.IsNull() {
		t.Errorf("Null() must be set and null, got set=%v null=%v", null.IsSet(), null.IsNull())
	}
	if _, ok := null.Get(); ok {
		t.Error("Null().Get() must report no value")
	}

	val := Value("hello")
	if !val.IsSet() || val.IsNull() {
		t.Errorf("Value() must be set and not null, got set=%v null=%v", val.IsSet(), val.IsNull())
	}
	if v, ok := val.Get(); !ok || v != "hello" {
		t.Errorf("Value().Get() = %q, %v", v, ok)
	}

	if got := unset.Or("fallback"); got != "fallback" {
		t.Errorf("unset.Or() = %q, want fallback", got)
	}
	if got := val.Or("fallback"); got != "hello" {
		t.Errorf("val.Or() = %q, want carried value", got)
	}
}

func TestFieldPatchFields(t *testing.T) {
	date := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	p := FieldPatch{
		GuestName:           Value("Ada Lovelace"),
		Notes:               Null[string](),
		PartySizeTotal:      Value(4),
		PartySizeTotalDelta: Value(-1),
		ExperienceDate:      Value(date),
		AddonPerGuest:       Value(true),
	}

	got := p.Fields()

	if got["guestName"] != "Ada Lovelace" {
		t.Errorf("guestName = %v", got["guestName"])
	}
	if v, ok := got["notes"]; !ok || v != nil {
		t.Errorf("notes = %v, %v; null fields must appear with nil value", v, ok)
	}
	if got["partySizeTotal"] != 4 {
		t.Errorf("partySizeTotal = %v", got["partySizeTotal"])
	}
	if got["partySizeTotalDelta"] != -1 {
		t.Errorf("partySizeTotalDelta = %v", got["partySizeTotalDelta"])
	}
	if got["experienceDate"] != "2025-07-04" {
		t.Errorf("experienceDate = %v", got["experienceDate"])
	}
	if got["addonPerGuest"] != true {
		t.Errorf("addonPerGuest = %v", got["addonPerGuest"])
	}

	if _, ok := got["guestEmail"]; ok {
		t.Error("unset fields must not appear in the snapshot")
	}
	if len(got) != 6 {
		t.Errorf("len(Fields()) = %d, want 6: %v", len(got), got)
	}
}
