package itinerary

import (
	"time"

	"github.com/josephgoksu/concierge/internal/airport"
	"github.com/josephgoksu/concierge/internal/events"
)

// AirportField selects which end of a leg a pick applies to.
type AirportField int

const (
	Departure AirportField = iota
	Arrival
)

func (f AirportField) opposite() AirportField {
	if f == Departure {
		return Arrival
	}
	return Departure
}

// DateKind describes how many legs a date pick covers.
type DateKind int

const (
	// DateSingle sets one leg's departure date.
	DateSingle DateKind = iota
	// DateDepartureReturn sets the departure dates of legs index and index+1.
	DateDepartureReturn
)

// ChangeKind names what an editor mutation touched.
type ChangeKind string

const (
	ChangeAirport    ChangeKind = "airport"
	ChangeDate       ChangeKind = "date"
	ChangeRoute      ChangeKind = "route_type"
	ChangeLegs       ChangeKind = "legs"
	ChangePassengers ChangeKind = "passengers"
)

// Change is emitted after every editor mutation. Legs lists the rows that need
// redrawing; it is nil when the whole itinerary changed shape.
type Change struct {
	Kind      ChangeKind
	Legs      []int
	RouteType RouteType
}

// Editor binds pick events to itinerary mutations. It is not safe for concurrent
// use; the owning form serialises access.
type Editor struct {
	it      *Itinerary
	changes *events.Emitter[Change]
}

// NewEditor wraps it. A nil itinerary starts a fresh one-way itinerary.
func NewEditor(it *Itinerary) *Editor {
	if it == nil {
		it = New()
	}
	return &Editor{it: it, changes: events.NewEmitter[Change]()}
}

// Itinerary returns the edited itinerary.
func (e *Editor) Itinerary() *Itinerary { return e.it }

// Changes is the view-model-changed signal.
func (e *Editor) Changes() *events.Emitter[Change] { return e.changes }

func (e *Editor) emit(kind ChangeKind, legs []int) {
	e.changes.Emit(Change{Kind: kind, Legs: legs, RouteType: e.it.RouteType})
}

// SelectAirport applies an airport pick to leg index.
//
// Round-trip keeps the return leg mirrored: leg 0's departure is the return
// arrival and leg 0's arrival is the return departure. A pick on the return leg
// is applied to the matching end of leg 0. Multi-city propagates an arrival at
// row i to row i+1's departure when that is unset.
func (e *Editor) SelectAirport(field AirportField, index int, a airport.Airport) {
	legs := e.it.Legs
	if index < 0 || index >= len(legs) {
		return
	}

	switch e.it.RouteType {
	case RoundTrip:
		if index == 1 {
			index, field = 0, field.opposite()
		}
		setAirport(&legs[0], field, a)
		if len(legs) > 1 {
			setAirport(&legs[1], field.opposite(), a)
		}
		e.emit(ChangeAirport, []int{0, 1})
	case MultiCity:
		setAirport(&legs[index], field, a)
		touched := []int{index}
		if field == Arrival && index+1 < len(legs) && legs[index+1].SetDepartureIfAbsent(a) {
			touched = append(touched, index+1)
		}
		e.emit(ChangeAirport, touched)
	default:
		setAirport(&legs[index], field, a)
		e.emit(ChangeAirport, []int{index})
	}
}

func setAirport(l *Leg, field AirportField, a airport.Airport) {
	if field == Departure {
		l.DepartureAirport = a
	} else {
		l.ArrivalAirport = a
	}
}

// SelectDate applies a date pick. DateSingle uses dates[0] for leg index;
// DateDepartureReturn uses dates[0] and dates[1] for legs index and index+1.
// Dates are clamped forward from index afterward.
func (e *Editor) SelectDate(kind DateKind, index int, dates ...time.Time) {
	legs := e.it.Legs
	if index < 0 || index >= len(legs) || len(dates) == 0 {
		return
	}

	touched := []int{index}
	legs[index].DepartureDate = dates[0]
	if kind == DateDepartureReturn && len(dates) > 1 && index+1 < len(legs) {
		legs[index+1].DepartureDate = dates[1]
		touched = append(touched, index+1)
	}

	for _, i := range e.it.ClampDatesForward(index) {
		if !containsInt(touched, i) {
			touched = append(touched, i)
		}
	}
	e.emit(ChangeDate, touched)
}

// ClearDate unsets the departure date of leg index.
func (e *Editor) ClearDate(index int) {
	if index < 0 || index >= len(e.it.Legs) {
		return
	}
	e.it.Legs[index].DepartureDate = time.Time{}
	e.emit(ChangeDate, []int{index})
}

// ChangeRouteType reshapes the itinerary without discarding compatible data.
func (e *Editor) ChangeRouteType(rt RouteType) {
	if e.it.ChangeRouteType(rt) {
		e.emit(ChangeRoute, nil)
	}
}

// SwapAirports is the one-way flip button.
func (e *Editor) SwapAirports() {
	if !e.it.SwapLegZeroAirports() {
		return
	}
	touched := []int{0}
	if e.it.RouteType == RoundTrip && len(e.it.Legs) > 1 {
		ret := &e.it.Legs[1]
		ret.DepartureAirport, ret.ArrivalAirport = e.it.Legs[0].ArrivalAirport, e.it.Legs[0].DepartureAirport
		touched = append(touched, 1)
	}
	e.emit(ChangeAirport, touched)
}

// AddLeg appends a multi-city row.
func (e *Editor) AddLeg() bool {
	if !e.it.AppendLeg() {
		return false
	}
	e.emit(ChangeLegs, nil)
	return true
}

// RemoveLeg deletes multi-city row i.
func (e *Editor) RemoveLeg(i int) bool {
	if !e.it.RemoveLeg(i) {
		return false
	}
	e.emit(ChangeLegs, nil)
	return true
}

// SetPassengers replaces the passenger counts.
func (e *Editor) SetPassengers(p Passengers) {
	if p.CabinClass == "" {
		p.CabinClass = e.it.Passengers.CabinClass
	}
	e.it.Passengers = p
	e.emit(ChangePassengers, nil)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
