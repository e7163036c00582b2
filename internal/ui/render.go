package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/josephgoksu/concierge/internal/airport"
	"github.com/josephgoksu/concierge/internal/catalog"
	"github.com/josephgoksu/concierge/internal/itinerary"
	"github.com/josephgoksu/concierge/internal/task"
)

// CategoryNamer resolves category ids for display.
type CategoryNamer interface {
	Category(id string) (catalog.Category, bool)
}

// RenderTaskList writes tasks as a table, newest first as given.
func RenderTaskList(w io.Writer, tasks []task.Task, names CategoryNamer) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, StyleSubtle.Render(" No requests yet."))
		return
	}

	table := &Table{
		Headers:  []string{"ID", "Status", "Category", "Title", "Created"},
		MaxWidth: 48,
	}
	for _, t := range tasks {
		category := t.CategoryID
		if names != nil {
			if c, ok := names.Category(t.CategoryID); ok {
				category = c.Name
			}
		}
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(t.ID, 10),
			Icon(StatusIcon(t.Status), StatusStyle(t.Status)) + " " + string(t.Status),
			category,
			t.Title,
			t.CreatedAt.Local().Format("Jan 02 15:04"),
		})
	}
	fmt.Fprint(w, table.Render())
}

// RenderCategories writes the two picker rows.
func RenderCategories(w io.Writer, cat catalog.Lookup) {
	primary, secondary := cat.Rows()
	for i, row := range [][]string{primary, secondary} {
		if i > 0 {
			fmt.Fprintln(w)
		}
		table := &Table{Headers: []string{"ID", "Name", "Form"}}
		for _, id := range row {
			c, ok := cat.Category(id)
			if !ok {
				continue
			}
			form := "chat"
			if c.IsCustomForm() {
				form = string(c.Form)
				if c.WebForm != "" {
					form += ":" + c.WebForm
				}
			}
			table.Rows = append(table.Rows, []string{c.ID, c.Name, form})
		}
		fmt.Fprint(w, table.Render())
	}
}

// RenderAirports writes airports as a table.
func RenderAirports(w io.Writer, airports []airport.Airport) {
	if len(airports) == 0 {
		fmt.Fprintln(w, StyleSubtle.Render(" No matching airports."))
		return
	}
	table := &Table{Headers: []string{"Code", "Name", "City", "Country"}, MaxWidth: 40}
	for _, a := range airports {
		table.Rows = append(table.Rows, []string{a.Code, a.Name, a.City, a.Country})
	}
	fmt.Fprint(w, table.Render())
}

// ItinerarySummary renders legs one per line plus the passenger line.
func ItinerarySummary(it *itinerary.Itinerary) string {
	if it == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(strings.ReplaceAll(string(it.RouteType), "_", " ")))
	for i, l := range it.Legs {
		from, to := placeholder(l.DepartureAirport.String()), placeholder(l.ArrivalAirport.String())
		date := "?"
		if !l.DepartureDate.IsZero() {
			date = l.DepartureDate.Format("Mon Jan 2 15:04")
		}
		fmt.Fprintf(&sb, "\n %d. %s → %s  %s", i+1, from, to, StyleSubtle.Render(date))
	}
	p := it.Passengers
	fmt.Fprintf(&sb, "\n %d adult(s), %d child(ren), %d infant(s), %s",
		p.Adults, p.Children, p.Infants, strings.ReplaceAll(string(p.CabinClass), "_", " "))
	return sb.String()
}

func placeholder(s string) string {
	if s == "" {
		return StyleWarning.Render("?")
	}
	return s
}
