package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"thde.io/nationbuilder"
)

var webhookEvents = []nationbuilder.WebhookEvent{
	nationbuilder.EventPersonCreation,
	nationbuilder.EventPersonChanged,
	nationbuilder.EventPersonContacted,
	nationbuilder.EventPersonDestroyed,
	nationbuilder.EventPersonMerged,
	nationbuilder.EventDonationSucceeded,
	nationbuilder.EventDonationChanged,
	nationbuilder.EventDonationFailed,
	nationbuilder.EventDonationCanceled,
}

func (a *app) webhooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "webhooks",
		Aliases: []string{"webhook"},
		Short:   "Manage webhooks and receive deliveries",
	}

	cmd.AddCommand(
		a.webhooksListCmd(),
		a.webhooksShowCmd(),
		a.webhooksCreateCmd(),
		a.webhooksDestroyCmd(),
		a.webhooksServeCmd(),
	)

	return cmd
}

func (a *app) webhooksListCmd() *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered webhooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.compile(a)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			hooks, err := collect(ctx, a, f, ff.all,
				func() (*nationbuilder.Page[nationbuilder.Webhook], error) {
					return a.client.Webhooks(ctx, nationbuilder.LimitParams{Limit: ff.limit})
				},
			)
			if err != nil {
				return err
			}

			return a.render(hooks, webhooksTable(hooks))
		},
	}
	ff.register(cmd)

	return cmd
}

func (a *app) webhooksShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hook, err := a.client.ShowWebhook(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return a.render(hook, webhooksTable([]nationbuilder.Webhook{*hook}))
		},
	}
}

func (a *app) webhooksCreateCmd() *cobra.Command {
	var (
		hookURL string
		event   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if hookURL == "" {
				return errors.New("--url is required")
			}
			if !validEvent(nationbuilder.WebhookEvent(event)) {
				return fmt.Errorf("unknown event %q, expected one of %v", event, webhookEvents)
			}

			hook, err := a.client.CreateWebhook(cmd.Context(), nationbuilder.Webhook{
				URL:   hookURL,
				Event: nationbuilder.WebhookEvent(event),
			})
			if err != nil {
				return err
			}

			a.logger.Info().Str("id", hook.ID).Str("event", string(hook.Event)).Msg("webhook created")
			return a.render(hook, webhooksTable([]nationbuilder.Webhook{*hook}))
		},
	}
	cmd.Flags().StringVar(&hookURL, "url", "", "URL receiving the deliveries")
	cmd.Flags().StringVar(&event, "event", string(nationbuilder.EventPersonChanged), "event to subscribe to")

	return cmd
}

func validEvent(event nationbuilder.WebhookEvent) bool {
	for _, e := range webhookEvents {
		if e == event {
			return true
		}
	}

	return false
}

func (a *app) webhooksDestroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <id>",
		Short: "Remove a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DestroyWebhook(cmd.Context(), args[0]); err != nil {
				return err
			}

			a.logger.Info().Str("id", args[0]).Msg("webhook destroyed")
			return nil
		},
	}
}

func (a *app) webhooksServeCmd() *cobra.Command {
	var (
		addr  string
		path  string
		token string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive person webhook deliveries and log them",
		Long: `Starts an HTTP server receiving person webhook deliveries. Every delivery
matching --filter is written to stdout as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := compileFilter(cmd.Flag("filter").Value.String())
			if err != nil {
				return err
			}

			return a.serve(cmd.Context(), &http.Server{
				Addr:              addr,
				Handler:           a.webhookMux(path, token, f),
				ReadHeaderTimeout: 10 * time.Second,
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&path, "path", "/webhook", "path receiving deliveries")
	cmd.Flags().StringVar(&token, "token", "", "webhook token configured in the control panel")
	cmd.Flags().StringP("filter", "f", "", "only print people matching the expression")

	return cmd
}

// webhookMux routes person deliveries posted to path.
func (a *app) webhookMux(path, token string, f *filter) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(path, nationbuilder.WebhookHandler(token, a.personDelivery(f), a.logger))

	return mux
}

// personDelivery prints the people of deliveries matching f.
func (a *app) personDelivery(
	f *filter,
) func(*http.Request, *nationbuilder.WebhookContent[nationbuilder.PersonWebhookPayload]) error {
	var mu sync.Mutex

	return func(r *http.Request, content *nationbuilder.WebhookContent[nationbuilder.PersonWebhookPayload]) error {
		person := content.Payload.Person

		a.logger.Info().
			Str("nation", content.NationSlug).
			Stringer("id", person.ID).
			Msg("webhook received")

		ok, err := f.Match(person)
		if err != nil {
			a.logger.Debug().Err(err).Msg("skipping delivery")
			return nil
		}
		if !ok {
			return nil
		}

		mu.Lock()
		defer mu.Unlock()
		return printJSON(a.out, person)
	}
}

// serve runs srv until ctx is done.
func (a *app) serve(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", srv.Addr).Msg("listening for webhooks")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
