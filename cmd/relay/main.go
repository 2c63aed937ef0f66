// Command relay is the chat push-notification relay.
//
// Usage:
//
//	chat-relay serve
//	chat-relay send-test --token <device-token>
//	chat-relay lookup <user-id>
//
// Configuration comes from the environment; FIREBASE_SERVICE_ACCOUNT must
// hold the service-account credential JSON.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"chat-relay/internal/api"
	"chat-relay/internal/config"
	"chat-relay/internal/listener"
	"chat-relay/internal/relay"
	"chat-relay/internal/store"
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "chat-relay",
		Short:         "Push-notification relay for new chat messages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(sendTestCmd())
	root.AddCommand(lookupCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newApp initializes the Firebase app from the credential blob. Malformed
// credentials fail here, before anything starts serving.
func newApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON([]byte(cfg.ServiceAccount)))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	return app, nil
}

// --------------------------------------------------------------------------
// serve command
// --------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay: listen for new messages and dispatch pushes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger := slog.New(slog.NewTextHandler(os.Stdout,
				&slog.HandlerOptions{Level: cfg.SlogLevel()}))
			slog.SetDefault(logger)

			return serve(cfg, logger)
		},
	}
}

func serve(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	fsClient, err := app.Firestore(ctx)
	if err != nil {
		return fmt.Errorf("create firestore client: %w", err)
	}
	defer fsClient.Close()
	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("create messaging client: %w", err)
	}

	// Assemble the pipeline. The start instant captured here is the single
	// admission threshold shared by all events.
	stores := store.New(fsClient)
	filter := relay.NewStalenessFilter(time.Now(), cfg.GraceWindow, cfg.MaxMessageAge, logger)
	resolver := relay.NewRecipientResolver(stores, logger)
	lookup := relay.NewTokenLookup(stores, logger)
	limiter := rate.NewLimiter(rate.Limit(cfg.DispatchRate), cfg.DispatchBurst)
	dispatcher := relay.NewDispatcher(msgClient, limiter, logger)
	pipe := relay.NewPipeline(filter, resolver, lookup, dispatcher,
		cfg.Workers, cfg.QueueSize, logger)

	go pipe.Start(ctx)
	go listener.Start(ctx, fsClient, pipe, filter.LowerBound(), logger)

	// Liveness endpoint for the hosting platform.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("Liveness endpoint up", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Liveness server failed", "error", err)
			cancel()
		}
	}()

	logger.Info("Relay started, listening for new messages",
		"grace_window", cfg.GraceWindow,
		"max_message_age", cfg.MaxMessageAge,
		"workers", cfg.Workers)

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Relay stopped")
	return nil
}

// --------------------------------------------------------------------------
// send-test command
// --------------------------------------------------------------------------

func sendTestCmd() *cobra.Command {
	var token, title string
	cmd := &cobra.Command{
		Use:   "send-test",
		Short: "Send a test push to a single device token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			ctx := cmd.Context()
			app, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			msgClient, err := app.Messaging(ctx)
			if err != nil {
				return fmt.Errorf("create messaging client: %w", err)
			}

			dispatcher := relay.NewDispatcher(msgClient, nil, logger)
			report, err := dispatcher.Dispatch(ctx, []string{token}, title, relay.PushBody)
			if err != nil {
				return fmt.Errorf("dispatch: %w", err)
			}
			for _, o := range report.Outcomes {
				if o.OK {
					fmt.Printf("delivered to %s\n", o.Token)
				} else {
					fmt.Printf("failed for %s: %s\n", o.Token, o.Code)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "target device token (required)")
	cmd.Flags().StringVar(&title, "title", "Test notification", "notification title")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

// --------------------------------------------------------------------------
// lookup command
// --------------------------------------------------------------------------

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <user-id>",
		Short: "Inspect a user's device registration record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			ctx := cmd.Context()
			app, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			fsClient, err := app.Firestore(ctx)
			if err != nil {
				return fmt.Errorf("create firestore client: %w", err)
			}
			defer fsClient.Close()

			user, err := store.New(fsClient).User(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("user: %s\nname: %s\n", user.UserID, user.DisplayName)
			if user.FCMToken == "" {
				fmt.Println("token: none (cannot notify)")
			} else {
				fmt.Printf("token: %s\n", relay.RedactToken(user.FCMToken))
			}
			return nil
		},
	}
}
