package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"thde.io/nationbuilder"
)

// table is a rendered list of resources.
type table struct {
	header []string
	rows   [][]string
}

// render writes v as JSON or t as table, depending on the output format.
func (a *app) render(v any, t table) error {
	if a.cfg.Output.Format == "json" {
		return printJSON(a.out, v)
	}

	return printTable(a.out, t)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, t table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(t.header, "\t"))
	for _, row := range t.rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	return tw.Flush()
}

var peopleHeader = []string{"ID", "NAME", "EMAIL", "PHONE", "TAGS", "UPDATED"}

func personRow(p *nationbuilder.AbbreviatedPerson) []string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	phone := p.Mobile
	if phone == "" {
		phone = p.Phone
	}

	return []string{
		p.ID.String(),
		name,
		p.Email,
		phone,
		strings.Join(p.Tags, ","),
		formatDate(p.UpdatedAt.Time),
	}
}

func peopleTable[T any](people []T, abbreviated func(*T) *nationbuilder.AbbreviatedPerson) table {
	t := table{header: peopleHeader}
	for i := range people {
		t.rows = append(t.rows, personRow(abbreviated(&people[i])))
	}

	return t
}

func donationsTable(donations []nationbuilder.Donation) table {
	t := table{header: []string{"ID", "DONOR", "AMOUNT", "PAYMENT", "SUCCEEDED"}}
	for _, d := range donations {
		donor := d.DonorID.String()
		if d.Donor != nil {
			donor = strings.TrimSpace(d.Donor.FirstName + " " + d.Donor.LastName)
		}
		amount := d.Amount
		if amount == "" {
			amount = fmt.Sprintf("%d.%02d", d.AmountInCents/100, d.AmountInCents%100)
		}

		t.rows = append(t.rows, []string{
			d.ID.String(),
			donor,
			amount,
			d.PaymentTypeName,
			formatDate(d.SucceededAt.Time),
		})
	}

	return t
}

func webhooksTable(hooks []nationbuilder.Webhook) table {
	t := table{header: []string{"ID", "EVENT", "VERSION", "URL"}}
	for _, h := range hooks {
		t.rows = append(t.rows, []string{h.ID, string(h.Event), fmt.Sprint(h.Version), h.URL})
	}

	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Format(time.DateOnly)
}

// collect gathers the results of the first page, or of all pages if all is set,
// and keeps those matching f.
func collect[T any](
	ctx context.Context,
	a *app,
	f *filter,
	all bool,
	first func() (*nationbuilder.Page[T], error),
) ([]T, error) {
	var items []T
	keep := func(item T) {
		ok, err := f.Match(item)
		if err != nil {
			a.logger.Debug().Err(err).Msg("skipping result")
			return
		}
		if ok {
			items = append(items, item)
		}
	}

	page, err := first()
	if err != nil {
		return nil, err
	}

	for {
		for _, item := range page.Results {
			keep(item)
		}
		if !page.HasNext() || len(page.Results) == 0 {
			return items, nil
		}
		if !all {
			a.logger.Info().Int("results", len(page.Results)).Msg("more results available, use --all to fetch every page")
			return items, nil
		}

		// The cursor keeps the limit of the first request.
		if page, err = nationbuilder.NextPage(ctx, a.client, page); err != nil {
			return nil, err
		}
	}
}
