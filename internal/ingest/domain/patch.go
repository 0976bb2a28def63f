package domain

import "time"

type optionalState uint8

const (
	stateUnset optionalState = iota
	stateNull
	stateValue
)

// Optional is a three-state field value: absent (the patch does not mention
// the field), explicitly null (the patch clears the field), or a value.
// The zero value is Unset.
type Optional[T any] struct {
	state optionalState
	value T
}

// Unset returns an absent Optional.
func Unset[T any]() Optional[T] {
	return Optional[T]{}
}

// Null returns an Optional that explicitly clears the field.
func Null[T any]() Optional[T] {
	return Optional[T]{state: stateNull}
}

// Value returns an Optional carrying v.
func Value[T any](v T) Optional[T] {
	return Optional[T]{state: stateValue, value: v}
}

// IsSet reports whether the patch mentions the field at all (null or value).
func (o Optional[T]) IsSet() bool {
	return o.state != stateUnset
}

// IsNull reports whether the field is explicitly cleared.
func (o Optional[T]) IsNull() bool {
	return o.state == stateNull
}

// Get returns the value and whether one is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.state == stateValue
}

// Or returns the carried value, or fallback when none is present.
func (o Optional[T]) Or(fallback T) T {
	if o.state == stateValue {
		return o.value
	}
	return fallback
}

// FieldPatch is the sparse set of booking attributes a parsed event carries.
// Unset fields leave the aggregate untouched; Null fields clear it; delta
// fields are additive against the stored value.
type FieldPatch struct {
	PaymentStatus  Optional[string]
	GuestName      Optional[string]
	GuestEmail     Optional[string]
	GuestPhone     Optional[string]
	ProductName    Optional[string]
	ProductVariant Optional[string]
	Notes          Optional[string]

	ExperienceDate Optional[time.Time]
	ExperienceTime Optional[string]

	PartySizeTotal    Optional[int]
	PartySizeAdults   Optional[int]
	PartySizeChildren Optional[int]

	PartySizeTotalDelta    Optional[int]
	PartySizeAdultsDelta   Optional[int]
	PartySizeChildrenDelta Optional[int]

	AddonName          Optional[string]
	AddonQuantity      Optional[int]
	AddonQuantityDelta Optional[int]
	AddonPerGuest      Optional[bool]

	// Monetary values are fixed-point decimal strings, never floats.
	TotalAmount Optional[string]
	Currency    Optional[string]
}

// Fields returns the set fields as a map for the audit payload snapshot.
// Null fields are included with a nil value.
func (p FieldPatch) Fields() map[string]any {
	out := make(map[string]any)

	putStr := func(key string, o Optional[string]) {
		if !o.IsSet() {
			return
		}
		if o.IsNull() {
			out[key] = nil
			return
		}
		v, _ := o.Get()
		out[key] = v
	}
	putInt := func(key string, o Optional[int]) {
		if !o.IsSet() {
			return
		}
		if o.IsNull() {
			out[key] = nil
			return
		}
		v, _ := o.Get()
		out[key] = v
	}

	putStr("paymentStatus", p.PaymentStatus)
	putStr("guestName", p.GuestName)
	putStr("guestEmail", p.GuestEmail)
	putStr("guestPhone", p.GuestPhone)
	putStr("productName", p.ProductName)
	putStr("productVariant", p.ProductVariant)
	putStr("notes", p.Notes)
	putStr("experienceTime", p.ExperienceTime)
	putStr("addonName", p.AddonName)
	putStr("totalAmount", p.TotalAmount)
	putStr("currency", p.Currency)

	putInt("partySizeTotal", p.PartySizeTotal)
	putInt("partySizeAdults", p.PartySizeAdults)
	putInt("partySizeChildren", p.PartySizeChildren)
	putInt("partySizeTotalDelta", p.PartySizeTotalDelta)
	putInt("partySizeAdultsDelta", p.PartySizeAdultsDelta)
	putInt("partySizeChildrenDelta", p.PartySizeChildrenDelta)
	putInt("addonQuantity", p.AddonQuantity)
	putInt("addonQuantityDelta", p.AddonQuantityDelta)

	if p.ExperienceDate.IsSet() {
		if v, ok := p.ExperienceDate.Get(); ok {
			out["experienceDate"] = v.Format("2006-01-02")
		} else {
			out["experienceDate"] = nil
		}
	}
	if p.AddonPerGuest.IsSet() {
		if v, ok := p.AddonPerGuest.Get(); ok {
			out["addonPerGuest"] = v
		} else {
			out["addonPerGuest"] = nil
		}
	}

	return out
}
