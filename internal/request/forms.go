package request

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/josephgoksu/concierge/internal/catalog"
	"github.com/josephgoksu/concierge/internal/itinerary"
	"github.com/josephgoksu/concierge/internal/task"
)

// Form is a category-specific request form shown over the chat surface.
type Form interface {
	Category() catalog.Category
	// Validate returns the names of blank or invalid fields; empty means valid.
	Validate() []string
	// Payload builds the create-task body. Call only after Validate passes.
	Payload() task.Payload
	// SetField sets a field from its text form, e.g. ("adults", "2").
	SetField(key, value string) error
	SetComment(text string)
	Comment() string
}

// ItineraryForm is a form that owns an itinerary editor.
type ItineraryForm interface {
	Form
	Editor() *itinerary.Editor
}

// NewForm instantiates the form for a custom-form category.
func NewForm(cat catalog.Category) (Form, error) {
	base := formBase{category: cat}
	switch cat.Form {
	case catalog.FormAvia:
		return &AviaForm{formBase: base, editor: itinerary.NewEditor(nil)}, nil
	case catalog.FormLounge:
		return &LoungeForm{formBase: base, editor: itinerary.NewEditor(nil), Service: LoungeDeparture}, nil
	case catalog.FormHotel:
		return &HotelForm{formBase: base, Booking: HotelBooking{Adults: 1, Rooms: 1}}, nil
	case catalog.FormWeb:
		if _, ok := webForms[cat.WebForm]; !ok {
			return nil, fmt.Errorf("category %s: unknown web form %q", cat.ID, cat.WebForm)
		}
		return &WebForm{formBase: base, kind: cat.WebForm, fields: map[string]string{}}, nil
	default:
		return nil, fmt.Errorf("category %s has no form", cat.ID)
	}
}

// ErrUnknownField is returned by SetField for keys the form does not have.
var ErrUnknownField = errors.New("unknown form field")

var formValidate = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors turns a validator error into field names.
func fieldErrors(err error) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"form"}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field())
	}
	return out
}

type formBase struct {
	category catalog.Category
	comment  string
}

func (b *formBase) Category() catalog.Category { return b.category }
func (b *formBase) SetComment(text string)     { b.comment = strings.TrimSpace(text) }
func (b *formBase) Comment() string            { return b.comment }

func (b *formBase) payload() task.Payload {
	p := task.Payload{task.PayloadTitleKey: task.TitleFor(b.category.Name)}
	if b.comment != "" {
		p["comment"] = b.comment
	}
	return p
}

// AviaForm requests flights.
type AviaForm struct {
	formBase
	editor *itinerary.Editor
}

func (f *AviaForm) Editor() *itinerary.Editor { return f.editor }

func (f *AviaForm) Validate() []string {
	return validateItinerary(f.editor.Itinerary())
}

func (f *AviaForm) Payload() task.Payload {
	p := f.payload()
	p["itinerary"] = itineraryPayload(f.editor.Itinerary())
	return p
}

func (f *AviaForm) SetField(key, value string) error {
	if key == "comment" {
		f.SetComment(value)
		return nil
	}
	return setItineraryField(f.editor, key, value)
}

// LoungeService is the VIP lounge service type.
type LoungeService string

const (
	LoungeDeparture LoungeService = "departure"
	LoungeArrival   LoungeService = "arrival"
	LoungeTransit   LoungeService = "transit"
)

// LoungeForm requests VIP lounge service around a flight itinerary.
type LoungeForm struct {
	formBase
	editor   *itinerary.Editor
	Service  LoungeService
	Terminal string
}

func (f *LoungeForm) Editor() *itinerary.Editor { return f.editor }

func (f *LoungeForm) Validate() []string {
	fields := validateItinerary(f.editor.Itinerary())
	switch f.Service {
	case LoungeDeparture, LoungeArrival, LoungeTransit:
	default:
		fields = append(fields, "service")
	}
	return fields
}

func (f *LoungeForm) Payload() task.Payload {
	p := f.payload()
	p["itinerary"] = itineraryPayload(f.editor.Itinerary())
	p["service"] = string(f.Service)
	if f.Terminal != "" {
		p["terminal"] = f.Terminal
	}
	return p
}

func (f *LoungeForm) SetField(key, value string) error {
	switch key {
	case "comment":
		f.SetComment(value)
	case "service":
		f.Service = LoungeService(strings.ToLower(strings.TrimSpace(value)))
	case "terminal":
		f.Terminal = strings.TrimSpace(value)
	default:
		return setItineraryField(f.editor, key, value)
	}
	return nil
}

func validateItinerary(it *itinerary.Itinerary) []string {
	var fields []string
	if !it.IsValid(it.RouteType) {
		fields = it.MissingFields()
		if len(fields) == 0 {
			fields = []string{"legs"}
		}
	}
	return append(fields, it.Passengers.Validate()...)
}

const payloadDateLayout = "2006-01-02T15:04"

func itineraryPayload(it *itinerary.Itinerary) map[string]any {
	legs := it.Legs
	if it.RouteType == itinerary.OneWay && len(legs) > 1 {
		legs = legs[:1]
	}
	out := make([]map[string]any, 0, len(legs))
	for _, l := range legs {
		leg := map[string]any{
			"from":          l.DepartureAirport.Code,
			"to":            l.ArrivalAirport.Code,
			"departureDate": l.DepartureDate.Format(payloadDateLayout),
		}
		if !l.ArrivalDate.IsZero() {
			leg["arrivalDate"] = l.ArrivalDate.Format(payloadDateLayout)
		}
		out = append(out, leg)
	}
	return map[string]any{
		"routeType": string(it.RouteType),
		"legs":      out,
		"passengers": map[string]any{
			"adults":     it.Passengers.Adults,
			"children":   it.Passengers.Children,
			"infants":    it.Passengers.Infants,
			"cabinClass": string(it.Passengers.CabinClass),
		},
	}
}

func setItineraryField(e *itinerary.Editor, key, value string) error {
	p := e.Itinerary().Passengers
	switch key {
	case "route":
		rt, err := itinerary.ParseRouteType(value)
		if err != nil {
			return err
		}
		e.ChangeRouteType(rt)
		return nil
	case "cabin":
		p.CabinClass = itinerary.CabinClass(strings.ToLower(strings.TrimSpace(value)))
	case "adults", "children", "infants":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "adults":
			p.Adults = n
		case "children":
			p.Children = n
		default:
			p.Infants = n
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	e.SetPassengers(p)
	return nil
}

// HotelBooking is the hotel form's data.
type HotelBooking struct {
	City     string    `json:"city" validate:"required"`
	CheckIn  time.Time `json:"checkIn" validate:"required"`
	CheckOut time.Time `json:"checkOut" validate:"required,gtfield=CheckIn"`
	Adults   int       `json:"adults" validate:"min=1,max=9"`
	Rooms    int       `json:"rooms" validate:"min=1,max=9"`
}

// HotelForm requests a hotel stay.
type HotelForm struct {
	formBase
	Booking HotelBooking
}

func (f *HotelForm) Validate() []string {
	return fieldErrors(formValidate.Struct(f.Booking))
}

func (f *HotelForm) Payload() task.Payload {
	p := f.payload()
	p["hotel"] = map[string]any{
		"city":     f.Booking.City,
		"checkIn":  f.Booking.CheckIn.Format(time.DateOnly),
		"checkOut": f.Booking.CheckOut.Format(time.DateOnly),
		"adults":   f.Booking.Adults,
		"rooms":    f.Booking.Rooms,
	}
	return p
}

func (f *HotelForm) SetField(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "comment":
		f.SetComment(value)
	case "city":
		f.Booking.City = value
	case "checkIn", "checkOut":
		d, err := ParseDate(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "checkIn" {
			f.Booking.CheckIn = d
		} else {
			f.Booking.CheckOut = d
		}
	case "adults", "rooms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "adults" {
			f.Booking.Adults = n
		} else {
			f.Booking.Rooms = n
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	return nil
}

// ParseDate accepts "2006-01-02" or "2006-01-02T15:04".
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(payloadDateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// WineOrder is the wine web-form.
type WineOrder struct {
	Wine         string `mapstructure:"wine" json:"wine" validate:"required"`
	Bottles      int    `mapstructure:"bottles" json:"bottles" validate:"min=1,max=120"`
	Address      string `mapstructure:"address" json:"address" validate:"required"`
	DeliveryDate string `mapstructure:"deliveryDate" json:"deliveryDate" validate:"omitempty,datetime=2006-01-02"`
}

// FlowersOrder is the flowers web-form.
type FlowersOrder struct {
	Bouquet      string `mapstructure:"bouquet" json:"bouquet" validate:"required"`
	Recipient    string `mapstructure:"recipient" json:"recipient" validate:"required"`
	Address      string `mapstructure:"address" json:"address" validate:"required"`
	Card         string `mapstructure:"card" json:"card" validate:"max=300"`
	DeliveryDate string `mapstructure:"deliveryDate" json:"deliveryDate" validate:"omitempty,datetime=2006-01-02"`
}

// webForms maps a web-form key to a constructor for its order type.
var webForms = map[string]func() any{
	"wine":    func() any { return &WineOrder{Bottles: 1} },
	"flowers": func() any { return &FlowersOrder{} },
}

// WebForm collects free-form key/value fields and decodes them into the typed
// order for its kind.
type WebForm struct {
	formBase
	kind   string
	fields map[string]string
}

func (f *WebForm) Kind() string { return f.kind }

// decode maps fields onto the order type. Keys the order has no field for are
// returned in unused rather than failing the decode.
func (f *WebForm) decode(fields map[string]string) (order any, unused []string, err error) {
	order = webForms[f.kind]()
	in := make(map[string]any, len(fields))
	for k, v := range fields {
		in[k] = v
	}
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Metadata:         &md,
		Result:           order,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := dec.Decode(in); err != nil {
		return nil, nil, err
	}
	return order, md.Unused, nil
}

func (f *WebForm) SetField(key, value string) error {
	if key == "comment" {
		f.SetComment(value)
		return nil
	}
	_, unused, err := f.decode(map[string]string{key: value})
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if len(unused) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	f.fields[key] = strings.TrimSpace(value)
	return nil
}

func (f *WebForm) Validate() []string {
	order, _, err := f.decode(f.fields)
	if err != nil {
		return []string{"order"}
	}
	return fieldErrors(formValidate.Struct(order))
}

func (f *WebForm) Payload() task.Payload {
	p := f.payload()
	p["webForm"] = f.kind
	order, _, err := f.decode(f.fields)
	if err != nil {
		return p
	}
	var m map[string]any
	if err := mapstructure.Decode(order, &m); err == nil {
		p["order"] = m
	}
	return p
}
