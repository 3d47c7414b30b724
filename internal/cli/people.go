package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"thde.io/nationbuilder"
)

func abbreviated(p *nationbuilder.AbbreviatedPerson) *nationbuilder.AbbreviatedPerson { return p }

func fullPerson(p *nationbuilder.Person) *nationbuilder.AbbreviatedPerson { return &p.AbbreviatedPerson }

// filterFlags are shared by commands listing resources.
type filterFlags struct {
	expression string
	preset     string
	all        bool
	limit      int
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ff.expression, "filter", "f", "", "filter expression, e.g. 'support_level <= 2 && hasTag(\"volunteer\")'")
	cmd.Flags().StringVarP(&ff.preset, "preset", "p", "", "use a preset filter from config")
	cmd.Flags().BoolVarP(&ff.all, "all", "a", false, "fetch every page")
	cmd.Flags().IntVarP(&ff.limit, "limit", "l", 0, "results per page (max 100)")
}

// compile returns the filter selected by the flags
func (ff *filterFlags) compile(a *app) (*filter, error) {
	expression := ff.expression
	if ff.preset != "" {
		if expression != "" {
			return nil, fmt.Errorf("--filter and --preset are mutually exclusive")
		}

		var ok bool
		expression, ok = a.cfg.Filter[strings.ToLower(ff.preset)]
		if !ok {
			return nil, fmt.Errorf("preset filter %q not found in config", ff.preset)
		}
	}

	f, err := compileFilter(expression)
	if err != nil {
		return nil, err
	}
	if f != nil {
		a.logger.Debug().Str("filter", f.expression).Msg("filtering results")
	}

	return f, nil
}

func (a *app) peopleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "people",
		Short: "Manage people",
	}

	cmd.AddCommand(
		a.peopleListCmd(),
		a.peopleShowCmd(),
		a.peopleSearchCmd(),
		a.peopleMatchCmd(),
		a.peopleNearbyCmd(),
		a.peopleMeCmd(),
		a.peoplePushCmd(),
		a.peopleDestroyCmd(),
		a.peopleRegisterCmd(),
	)

	return cmd
}

func (a *app) peopleListCmd() *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List people in the nation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.compile(a)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			people, err := collect(ctx, a, f, ff.all,
				func() (*nationbuilder.Page[nationbuilder.AbbreviatedPerson], error) {
					return a.client.People(ctx, nationbuilder.LimitParams{Limit: ff.limit})
				},
			)
			if err != nil {
				return err
			}

			a.logger.Info().Int("count", len(people)).Msg("people found")
			return a.render(people, peopleTable(people, abbreviated))
		},
	}
	ff.register(cmd)

	return cmd
}

func (a *app) peopleShowCmd() *cobra.Command {
	var external bool

	cmd := &cobra.Command{
		Use:   "show <id>...",
		Short: "Show the full record of people",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if external {
				var people []nationbuilder.Person
				for _, id := range args {
					resp, err := a.client.ShowPersonWithExternalID(ctx, id)
					if err != nil {
						return err
					}
					people = append(people, resp.Person)
				}
				return a.render(people, peopleTable(people, fullPerson))
			}

			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			responses, err := a.client.ShowPeople(ctx, ids)
			if err != nil {
				return err
			}

			people := make([]nationbuilder.Person, len(responses))
			for i, resp := range responses {
				people[i] = resp.Person
			}
			return a.render(people, peopleTable(people, fullPerson))
		},
	}
	cmd.Flags().BoolVar(&external, "external", false, "treat the ids as external ids")

	return cmd
}

func (a *app) peopleSearchCmd() *cobra.Command {
	var (
		ff           filterFlags
		params       nationbuilder.SearchParams
		updatedSince string
		birthdate    string
		custom       map[string]string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search people by field values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.compile(a)
			if err != nil {
				return err
			}

			if params.UpdatedSince, err = parseTimeFlag("updated-since", updatedSince); err != nil {
				return err
			}
			if birthdate != "" {
				t, err := time.Parse(nationbuilder.DateLayout, birthdate)
				if err != nil {
					return fmt.Errorf("invalid --birthdate: %w", err)
				}
				params.Birthdate = nationbuilder.Date{Time: t}
			}
			if len(custom) > 0 {
				params.CustomValues = nationbuilder.CustomValues(custom)
			}
			params.Limit = ff.limit

			ctx := cmd.Context()
			people, err := collect(ctx, a, f, ff.all,
				func() (*nationbuilder.Page[nationbuilder.AbbreviatedPerson], error) {
					return a.client.SearchPeople(ctx, params)
				},
			)
			if err != nil {
				return err
			}

			return a.render(people, peopleTable(people, abbreviated))
		},
	}
	ff.register(cmd)

	cmd.Flags().StringVar(&params.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&params.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&params.City, "city", "", "city of the primary address")
	cmd.Flags().StringVar(&params.State, "state", "", "state of the primary address")
	cmd.Flags().StringVar(&params.Sex, "sex", "", "M, F or O")
	cmd.Flags().StringVar(&params.ExternalID, "external-id", "", "external id")
	cmd.Flags().BoolVar(&params.WithMobile, "with-mobile", false, "only people with a mobile number")
	cmd.Flags().StringVar(&updatedSince, "updated-since", "", "RFC 3339 timestamp or YYYY-MM-DD")
	cmd.Flags().StringVar(&birthdate, "birthdate", "", "YYYY-MM-DD")
	cmd.Flags().StringToStringVar(&custom, "custom", nil, "custom field values, e.g. --custom tier=gold")

	return cmd
}

func (a *app) peopleMatchCmd() *cobra.Command {
	var params nationbuilder.MatchParams

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Find the single person matching all criteria",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.MatchPerson(cmd.Context(), params)
			if err != nil {
				if nationbuilder.HasCode(err, nationbuilder.CodeNoMatches) {
					return fmt.Errorf("no person matches")
				}
				return err
			}

			people := []nationbuilder.AbbreviatedPerson{resp.Person}
			return a.render(resp.Person, peopleTable(people, abbreviated))
		},
	}

	cmd.Flags().StringVar(&params.Email, "email", "", "email address")
	cmd.Flags().StringVar(&params.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&params.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&params.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&params.Mobile, "mobile", "", "mobile number")

	return cmd
}

func (a *app) peopleNearbyCmd() *cobra.Command {
	var (
		ff     filterFlags
		params nationbuilder.NearbyParams
	)

	cmd := &cobra.Command{
		Use:   "nearby <lat,lng>",
		Short: "List people near a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.compile(a)
			if err != nil {
				return err
			}

			params.Location = args[0]
			params.Limit = ff.limit

			ctx := cmd.Context()
			people, err := collect(ctx, a, f, ff.all,
				func() (*nationbuilder.Page[nationbuilder.Person], error) {
					return a.client.NearbyPeople(ctx, params)
				},
			)
			if err != nil {
				return err
			}

			return a.render(people, peopleTable(people, fullPerson))
		},
	}
	ff.register(cmd)
	cmd.Flags().Float64Var(&params.Distance, "distance", 1, "radius in miles")

	return cmd
}

func (a *app) peopleMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the person owning the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}

			people := []nationbuilder.Person{resp.Person}
			return a.render(resp.Person, peopleTable(people, fullPerson))
		},
	}
}

func (a *app) peoplePushCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Create or update a person from JSON",
		Long: `Reads a person as JSON from --file or stdin and pushes it. An existing
person is matched by email or external id, otherwise a new one is created.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			var p nationbuilder.Person
			if err := json.NewDecoder(r).Decode(&p); err != nil {
				return fmt.Errorf("decode person: %w", err)
			}

			resp, err := a.client.PushPerson(cmd.Context(), p)
			if err != nil {
				return err
			}

			a.logger.Info().Stringer("id", resp.Person.ID).Msg("person pushed")
			people := []nationbuilder.Person{resp.Person}
			return a.render(resp.Person, peopleTable(people, fullPerson))
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "JSON file with the person")

	return cmd
}

func (a *app) peopleDestroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <id>",
		Short: "Remove a person from the nation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			if err := a.client.DestroyPerson(cmd.Context(), ids[0]); err != nil {
				return err
			}

			a.logger.Info().Stringer("id", ids[0]).Msg("person destroyed")
			return nil
		},
	}
}

func (a *app) peopleRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <id>",
		Short: "Send the account confirmation email to a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			resp, err := a.client.RegisterPerson(cmd.Context(), ids[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, resp.Status)
			return nil
		},
	}
}

func parseIDs(args []string) ([]nationbuilder.ID, error) {
	ids := make([]nationbuilder.ID, len(args))
	for i, arg := range args {
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids[i] = nationbuilder.ID(n)
	}

	return ids, nil
}
