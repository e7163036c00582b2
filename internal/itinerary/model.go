// Package itinerary models flight legs for the avia and VIP-lounge request forms.
//
// The model never fails: invalid or incomplete states are reported through
// IsValid, and out-of-order dates are clamped rather than rejected.
package itinerary

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/josephgoksu/concierge/internal/airport"
)

// RouteType is the shape of an itinerary.
type RouteType string

const (
	OneWay    RouteType = "one_way"
	RoundTrip RouteType = "round_trip"
	MultiCity RouteType = "multi_city"
)

// ParseRouteType accepts the canonical names plus a few common spellings.
func ParseRouteType(s string) (RouteType, error) {
	switch strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(s))) {
	case "one_way", "oneway", "ow":
		return OneWay, nil
	case "round_trip", "roundtrip", "rt", "return":
		return RoundTrip, nil
	case "multi_city", "multicity", "mc":
		return MultiCity, nil
	default:
		return "", fmt.Errorf("unknown route type %q", s)
	}
}

const (
	// MaxMultiCityLegs caps the number of multi-city rows.
	MaxMultiCityLegs = 10
	// MinMultiCityLegs is the smallest multi-city shape.
	MinMultiCityLegs = 2
)

// CabinClass is the requested service class.
type CabinClass string

const (
	CabinEconomy        CabinClass = "economy"
	CabinPremiumEconomy CabinClass = "premium_economy"
	CabinBusiness       CabinClass = "business"
	CabinFirst          CabinClass = "first"
)

// Leg is one directional flight segment. Zero values mean "not picked yet".
type Leg struct {
	DepartureAirport airport.Airport `json:"departureAirport"`
	ArrivalAirport   airport.Airport `json:"arrivalAirport"`
	DepartureDate    time.Time       `json:"departureDate"`
	ArrivalDate      time.Time       `json:"arrivalDate,omitzero"`
}

// IsComplete reports whether both airports and the departure date are set.
func (l Leg) IsComplete() bool {
	return !l.DepartureAirport.IsZero() && !l.ArrivalAirport.IsZero() && !l.DepartureDate.IsZero()
}

// SetDepartureIfAbsent sets the departure airport only when none is set.
func (l *Leg) SetDepartureIfAbsent(a airport.Airport) bool {
	if !l.DepartureAirport.IsZero() || a.IsZero() {
		return false
	}
	l.DepartureAirport = a
	return true
}

// SetArrivalIfAbsent sets the arrival airport only when none is set.
func (l *Leg) SetArrivalIfAbsent(a airport.Airport) bool {
	if !l.ArrivalAirport.IsZero() || a.IsZero() {
		return false
	}
	l.ArrivalAirport = a
	return true
}

// Reversed returns the return-direction leg with no date.
func (l Leg) Reversed() Leg {
	return Leg{DepartureAirport: l.ArrivalAirport, ArrivalAirport: l.DepartureAirport}
}

// Passengers holds the traveller counts for a booking.
type Passengers struct {
	Adults     int        `json:"adults" validate:"min=1,max=9"`
	Children   int        `json:"children" validate:"min=0,max=9"`
	Infants    int        `json:"infants" validate:"min=0,max=9"`
	CabinClass CabinClass `json:"cabinClass" validate:"required,oneof=economy premium_economy business first"`
}

// DefaultPassengers is one adult in economy.
func DefaultPassengers() Passengers {
	return Passengers{Adults: 1, CabinClass: CabinEconomy}
}

var validate = validator.New()

// Validate checks passenger counts and returns the offending field names.
func (p Passengers) Validate() []string {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{"passengers"}
	}
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, "passengers."+lowerFirst(e.Field()))
	}
	return fields
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// Itinerary is the full set of legs plus passengers for one booking attempt.
type Itinerary struct {
	RouteType  RouteType  `json:"routeType"`
	Legs       []Leg      `json:"legs"`
	Passengers Passengers `json:"passengers"`
}

// New returns an empty one-way itinerary with default passengers.
func New() *Itinerary {
	return &Itinerary{
		RouteType:  OneWay,
		Legs:       []Leg{{}},
		Passengers: DefaultPassengers(),
	}
}

// Leg returns a copy of leg i, or false when out of range.
func (it *Itinerary) Leg(i int) (Leg, bool) {
	if i < 0 || i >= len(it.Legs) {
		return Leg{}, false
	}
	return it.Legs[i], true
}

// IsValid reports whether the legs satisfy the completeness rule for rt.
// One-way only looks at leg 0; round-trip and multi-city require every leg.
func (it *Itinerary) IsValid(rt RouteType) bool {
	switch rt {
	case OneWay:
		return len(it.Legs) > 0 && it.Legs[0].IsComplete()
	case RoundTrip:
		return len(it.Legs) == 2 && it.allComplete()
	case MultiCity:
		return len(it.Legs) >= MinMultiCityLegs && len(it.Legs) <= MaxMultiCityLegs && it.allComplete()
	default:
		return false
	}
}

func (it *Itinerary) allComplete() bool {
	for _, l := range it.Legs {
		if !l.IsComplete() {
			return false
		}
	}
	return true
}

// MissingFields lists the unset fields that keep the itinerary from being valid
// for its current route type, using "legs[i].field" paths.
func (it *Itinerary) MissingFields() []string {
	legs := it.Legs
	if it.RouteType == OneWay && len(legs) > 1 {
		legs = legs[:1]
	}
	var missing []string
	for i, l := range legs {
		if l.DepartureAirport.IsZero() {
			missing = append(missing, fmt.Sprintf("legs[%d].departureAirport", i))
		}
		if l.ArrivalAirport.IsZero() {
			missing = append(missing, fmt.Sprintf("legs[%d].arrivalAirport", i))
		}
		if l.DepartureDate.IsZero() {
			missing = append(missing, fmt.Sprintf("legs[%d].departureDate", i))
		}
	}
	if len(legs) == 0 {
		missing = append(missing, "legs")
	}
	return missing
}

// SwapLegZeroAirports flips departure and arrival of leg 0.
// It is a no-op unless both airports are set.
func (it *Itinerary) SwapLegZeroAirports() bool {
	if len(it.Legs) == 0 {
		return false
	}
	l := &it.Legs[0]
	if l.DepartureAirport.IsZero() || l.ArrivalAirport.IsZero() {
		return false
	}
	l.DepartureAirport, l.ArrivalAirport = l.ArrivalAirport, l.DepartureAirport
	return true
}

// AppendLeg adds a multi-city row seeded with the previous row's arrival as its
// departure. It returns false once MaxMultiCityLegs is reached or the itinerary
// is not multi-city.
func (it *Itinerary) AppendLeg() bool {
	if it.RouteType != MultiCity || len(it.Legs) >= MaxMultiCityLegs {
		return false
	}
	var next Leg
	if n := len(it.Legs); n > 0 {
		next.SetDepartureIfAbsent(it.Legs[n-1].ArrivalAirport)
	}
	it.Legs = append(it.Legs, next)
	return true
}

// RemoveLeg deletes multi-city row i, re-indexes the following rows and re-clamps
// dates from i onward. Rows below MinMultiCityLegs cannot be removed.
func (it *Itinerary) RemoveLeg(i int) bool {
	if it.RouteType != MultiCity || i < 0 || i >= len(it.Legs) || len(it.Legs) <= MinMultiCityLegs {
		return false
	}
	it.Legs = append(it.Legs[:i], it.Legs[i+1:]...)
	it.ClampDatesForward(i)
	return true
}

// ClampDatesForward walks legs from..end and replaces any departure date earlier
// than its predecessor's with the predecessor's date. Unset dates are skipped.
// A second call with the same argument changes nothing.
func (it *Itinerary) ClampDatesForward(from int) []int {
	if from < 1 {
		from = 1
	}
	var changed []int
	for i := from; i < len(it.Legs); i++ {
		prev := it.Legs[i-1].DepartureDate
		cur := it.Legs[i].DepartureDate
		if prev.IsZero() || cur.IsZero() {
			continue
		}
		if cur.Before(prev) {
			it.Legs[i].DepartureDate = prev
			changed = append(changed, i)
		}
	}
	return changed
}

// ChangeRouteType reshapes the legs for rt while keeping entered data the new
// shape can hold:
//   - to one-way: keep leg 0;
//   - to round-trip: keep leg 0 and make leg 1 its reverse, keeping leg 1's date
//     when there was one;
//   - to multi-city: keep existing legs, adding a row seeded from leg 0's arrival
//     when only one exists.
func (it *Itinerary) ChangeRouteType(rt RouteType) bool {
	if rt == it.RouteType {
		return false
	}
	if len(it.Legs) == 0 {
		it.Legs = []Leg{{}}
	}
	first := it.Legs[0]

	switch rt {
	case OneWay:
		it.Legs = []Leg{first}
	case RoundTrip:
		ret := first.Reversed()
		if len(it.Legs) > 1 {
			ret.DepartureDate = it.Legs[1].DepartureDate
		}
		it.Legs = []Leg{first, ret}
	case MultiCity:
		if len(it.Legs) > MaxMultiCityLegs {
			it.Legs = it.Legs[:MaxMultiCityLegs]
		}
		if len(it.Legs) < MinMultiCityLegs {
			var next Leg
			next.SetDepartureIfAbsent(first.ArrivalAirport)
			it.Legs = append(it.Legs, next)
		}
	default:
		return false
	}
	it.RouteType = rt
	it.ClampDatesForward(1)
	return true
}

// Clone returns a deep copy.
func (it *Itinerary) Clone() *Itinerary {
	c := *it
	c.Legs = make([]Leg, len(it.Legs))
	copy(c.Legs, it.Legs)
	return &c
}
