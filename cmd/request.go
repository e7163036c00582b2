package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/josephgoksu/concierge/internal/airport"
	"github.com/josephgoksu/concierge/internal/catalog"
	"github.com/josephgoksu/concierge/internal/chat"
	"github.com/josephgoksu/concierge/internal/itinerary"
	"github.com/josephgoksu/concierge/internal/logger"
	"github.com/josephgoksu/concierge/internal/request"
	"github.com/josephgoksu/concierge/internal/taskfeed"
	"github.com/josephgoksu/concierge/internal/ui"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

type requestOptions struct {
	route    string
	legs     []string
	adults   int
	children int
	infants  int
	cabin    string
	fields   []string
	comment  string
	message  string
	draft    string
	local    bool
}

var requestOpts requestOptions

var requestCmd = &cobra.Command{
	Use:   "request [category]",
	Short: "Create a new request",
	Long: `Create a request in a category.

Categories with a form (flights, VIP lounge, hotels, wine, flowers) are filled
from flags and submitted; the command waits until the new request shows up in
your request list and then opens its chat. Other categories send --message to
the concierge chat, tagged with the category name.

Legs are FROM-TO@DATE with IATA codes and a 2006-01-02 or 2006-01-02T15:04
date. Either side may be left out, e.g. "@2026-06-12" for a return date.

Examples:
  concierge request avia --leg JFK-LAX@2026-06-01
  concierge request avia --route round_trip --leg JFK-LHR@2026-06-01 --leg @2026-06-12 --adults 2
  concierge request vip_lounge --leg CDG-FRA@2026-05-02T09:30 --field service=departure
  concierge request hotel --field city=Paris --field checkIn=2026-05-01 --field checkOut=2026-05-04
  concierge request restaurant --message "Table for two tonight"

Exit status: 2 missing fields, 3 not sent, 4 sent but not confirmed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRequest,
}

func init() {
	f := requestCmd.Flags()
	f.StringVar(&requestOpts.route, "route", "", "one_way, round_trip or multi_city")
	f.StringArrayVar(&requestOpts.legs, "leg", nil, "flight leg FROM-TO@DATE (repeatable)")
	f.IntVar(&requestOpts.adults, "adults", 0, "adult passengers")
	f.IntVar(&requestOpts.children, "children", 0, "child passengers")
	f.IntVar(&requestOpts.infants, "infants", 0, "infant passengers")
	f.StringVar(&requestOpts.cabin, "cabin", "", "economy, premium_economy, business or first")
	f.StringArrayVar(&requestOpts.fields, "field", nil, "form field key=value (repeatable)")
	f.StringVar(&requestOpts.comment, "comment", "", "comment sent with the form")
	f.StringVarP(&requestOpts.message, "message", "m", "", "chat message for categories without a form")
	f.StringVar(&requestOpts.draft, "draft", "", "unsent chat text carried into the new request's chat")
	f.BoolVar(&requestOpts.local, "local", false, "use the local store instead of the task API")
	rootCmd.AddCommand(requestCmd)
}

func runRequest(cmd *cobra.Command, args []string) error {
	a := current
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	opts := requestOpts

	cat, err := openCatalog(ctx, a)
	if err != nil {
		return err
	}
	defer cat.Stop()

	categoryID, err := chooseCategory(cat.Current(), args)
	if err != nil {
		return err
	}

	be, release, err := openBackend(a, opts.local)
	if err != nil {
		return err
	}
	defer release()

	feed := taskfeed.New(be, a.log)
	defer feed.Wait()
	console := chat.NewConsole(out)

	orch, err := request.New(request.Deps{
		Catalog:   cat,
		Creator:   be,
		Feed:      feed,
		Chat:      console,
		Telemetry: a.telemetry,
		Logger:    a.log,
		Retry: request.RetryPolicy{
			MaxAttempts: a.cfg.Submission.MaxAttempts,
			Interval:    a.cfg.Submission.RetryInterval,
		},
		Debounce: a.cfg.Submission.Debounce,
	})
	if err != nil {
		return err
	}
	defer orch.Close()

	states := orch.StateChanges().Handle(func(s request.State) {
		logger.SetScreen(string(s.Mode), s.CategoryID)
		a.log.Debug("screen", "mode", s.Mode, "category", s.CategoryID)
	})
	defer states.Close()

	orch.SelectTab(request.TabNew)
	form, err := orch.SelectCategory(categoryID)
	if err != nil {
		return err
	}
	if opts.draft != "" {
		console.SetDraft(&opts.draft)
	}

	if form == nil {
		text := strings.TrimSpace(opts.message)
		if text == "" {
			text = strings.TrimSpace(opts.comment)
		}
		if text == "" {
			return errors.New("this category has no form; pass --message")
		}
		return orch.Send(ctx, text)
	}

	if err := orch.EditForm(func(f request.Form) error {
		return applyFormOptions(f, opts, airport.Builtin(), a)
	}); err != nil {
		return err
	}
	if itf, ok := form.(request.ItineraryForm); ok && !isJSON() {
		fmt.Fprintln(out, ui.StyleFormBox.Render(ui.ItinerarySummary(itf.Editor().Itinerary())))
	}

	outcome, err := submitAndWait(ctx, cmd, orch, feed, opts.comment)
	if err != nil {
		return err
	}
	if outcome.Err != nil {
		return outcome.Err
	}

	if isJSON() {
		return printJSON(out, outcome.Task)
	}
	if d, ok := console.CurrentDraft(); ok {
		fmt.Fprintf(out, "%s %s\n", ui.StyleSubtle.Render("draft:"), d)
	}
	return nil
}

// submitAndWait submits through the chat send path when there is a comment,
// the way pressing send on an open form does, and directly otherwise.
func submitAndWait(ctx context.Context, cmd *cobra.Command, orch *request.Orchestrator, feed *taskfeed.Feed, comment string) (request.Outcome, error) {
	sub := orch.Outcomes().SubscribeBuffered(1)
	defer sub.Close()

	if strings.TrimSpace(comment) != "" {
		if err := orch.Send(ctx, comment); err != nil {
			return request.Outcome{}, err
		}
	} else {
		go func() { _, _ = orch.Submit(ctx) }()
	}

	if ui.IsInteractive() && !isJSON() {
		spin := ui.NewSpinner(cmd.ErrOrStderr(), "Sending your request...")
		checks := 0
		loaded := feed.Loaded().Handle(func(taskfeed.Loaded) {
			checks++
			spin.SetSuffix(fmt.Sprintf("Waiting for the desk to confirm (check %d)...", checks))
		})
		defer loaded.Close()
		spin.Start()
		defer spin.Stop()
	}

	select {
	case o := <-sub.C:
		return o, nil
	case <-ctx.Done():
		return request.Outcome{}, ctx.Err()
	}
}

// chooseCategory resolves the argument, or asks when there is none and a
// terminal is attached.
func chooseCategory(cat *catalog.Catalog, args []string) (string, error) {
	if len(args) == 1 {
		c, err := cat.Resolve(args[0])
		if err != nil {
			return "", fmt.Errorf("%w: %s", request.ErrUnknownCategory, args[0])
		}
		return c.ID, nil
	}
	if !ui.IsInteractive() {
		return "", errors.New("category required")
	}
	return promptCategory(cat)
}

func promptCategory(cat *catalog.Catalog) (string, error) {
	primary, secondary := cat.Rows()
	items := resolveIDs(cat, append(append([]string{}, primary...), secondary...))

	prompt := promptui.Select{
		Label: "What can we arrange",
		Items: items,
		Size:  len(items),
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}?",
			Active:   `> {{ .Name | cyan }} {{ .ID | faint }}`,
			Inactive: `  {{ .Name }}`,
			Selected: `{{ "✔" | green }} {{ .Name | faint }}`,
		},
		Searcher: func(input string, i int) bool {
			input = strings.ToLower(input)
			return strings.Contains(strings.ToLower(items[i].Name), input) || strings.Contains(items[i].ID, input)
		},
	}
	i, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return items[i].ID, nil
}

// applyFormOptions fills f from flags. Field errors are returned; blank
// required fields are left for Submit to report.
func applyFormOptions(f request.Form, opts requestOptions, dir *airport.Directory, a *app) error {
	if itf, ok := f.(request.ItineraryForm); ok {
		ed := itf.Editor()
		changes := ed.Changes().Handle(func(c itinerary.Change) {
			a.log.Debug("itinerary changed", "kind", c.Kind, "legs", c.Legs)
		})
		defer changes.Close()

		if opts.route != "" {
			if err := f.SetField("route", opts.route); err != nil {
				return err
			}
		}
		for _, kv := range []struct {
			key string
			n   int
		}{{"adults", opts.adults}, {"children", opts.children}, {"infants", opts.infants}} {
			if kv.n > 0 {
				if err := f.SetField(kv.key, strconv.Itoa(kv.n)); err != nil {
					return err
				}
			}
		}
		if opts.cabin != "" {
			if err := f.SetField("cabin", opts.cabin); err != nil {
				return err
			}
		}
		if err := applyLegs(ed, opts.legs, dir); err != nil {
			return err
		}
	} else if len(opts.legs) > 0 || opts.route != "" {
		return fmt.Errorf("%s has no itinerary", f.Category().Name)
	}

	for _, field := range opts.fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return fmt.Errorf("field %q: want key=value", field)
		}
		if err := f.SetField(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}
	return nil
}

// legSpec is one parsed --leg value. Zero parts were left out.
type legSpec struct {
	from, to string
	date     time.Time
}

func parseLegSpec(s string) (legSpec, error) {
	var spec legSpec
	route, date, hasDate := strings.Cut(strings.TrimSpace(s), "@")
	if hasDate {
		d, err := request.ParseDate(strings.TrimSpace(date))
		if err != nil {
			return spec, fmt.Errorf("leg %q: %w", s, err)
		}
		spec.date = d
	}
	if route = strings.TrimSpace(route); route != "" {
		from, to, ok := strings.Cut(route, "-")
		if !ok {
			return spec, fmt.Errorf("leg %q: want FROM-TO", s)
		}
		spec.from, spec.to = strings.TrimSpace(from), strings.TrimSpace(to)
	}
	if spec.from == "" && spec.to == "" && spec.date.IsZero() {
		return spec, fmt.Errorf("leg %q is empty", s)
	}
	return spec, nil
}

func applyLegs(ed *itinerary.Editor, legs []string, dir *airport.Directory) error {
	for i, raw := range legs {
		spec, err := parseLegSpec(raw)
		if err != nil {
			return err
		}
		it := ed.Itinerary()
		for i >= len(it.Legs) {
			if it.RouteType != itinerary.MultiCity || !ed.AddLeg() {
				return fmt.Errorf("leg %d: a %s itinerary has %d leg(s)", i+1, it.RouteType, len(it.Legs))
			}
		}
		if spec.from != "" {
			ap, err := dir.Resolve(spec.from)
			if err != nil {
				return fmt.Errorf("leg %d departure: %w", i+1, err)
			}
			ed.SelectAirport(itinerary.Departure, i, ap)
		}
		if spec.to != "" {
			ap, err := dir.Resolve(spec.to)
			if err != nil {
				return fmt.Errorf("leg %d arrival: %w", i+1, err)
			}
			ed.SelectAirport(itinerary.Arrival, i, ap)
		}
		if !spec.date.IsZero() {
			ed.SelectDate(itinerary.DateSingle, i, spec.date)
		}
	}
	return nil
}
