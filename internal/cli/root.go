// Package cli wires the chatpanel commands.
package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chatpanel/internal/backend"
	"chatpanel/internal/blobstore"
	"chatpanel/internal/config"
	"chatpanel/internal/content"
	"chatpanel/internal/conversation"
	"chatpanel/internal/logging"
	"chatpanel/internal/reconcile"
	"chatpanel/internal/session"
	"chatpanel/internal/viewer"
)

var configPath string

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "chatpanel",
		Short: "Local bridge between a bot backend and a browser chat view",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	root.AddCommand(newPromptCommand())
	return root
}

// Execute runs the CLI until completion or context cancellation.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.New(nil, cfg.LogLevel)

	blobs, err := blobstore.New(cfg.BlobDir)
	if err != nil {
		return err
	}

	store := conversation.New(conversation.Config{Blobs: blobs})
	pending := &conversation.PendingReactions{}
	sess := session.New(session.Config{
		Store:     store,
		Pending:   pending,
		ChannelID: cfg.ChannelID,
		Username:  cfg.Username,
	})

	client := backend.NewClient(cfg.BackendURL, logging.Sub(log, "backend"))
	hub := viewer.NewHub(logging.Sub(log, "viewer"))
	server := viewer.NewServer(store, sess, client, blobs, hub, cfg.ListenAddr, logging.Sub(log, "viewer"))
	store.ChangeCallback = server.PushState

	reconciler := reconcile.New(reconcile.Config{
		Store:    store,
		Pending:  pending,
		Session:  sess,
		Renderer: content.NewRenderer(),
		Blobs:    blobs,
		Notifier: server,
		Log:      logging.Sub(log, "reconcile"),
	})
	queue := reconcile.NewQueue(256, reconciler.Apply, sess.StopProcessing, logging.Sub(log, "queue"))
	sess.SetQueue(queue)

	socket := backend.NewSocket(cfg.SocketURL(), queue, server, logging.Sub(log, "socket"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := queue.Run(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		err := socket.Run(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("viewer shutdown error")
		}
		// Conversation teardown releases all attachment blobs.
		store.Reset()
		return nil
	})

	return g.Wait()
}
