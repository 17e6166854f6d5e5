package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eleven-am/streamsight/internal/bootstrap"
	"github.com/eleven-am/streamsight/internal/contextstore"
	"github.com/eleven-am/streamsight/internal/credentials"
	"github.com/eleven-am/streamsight/internal/gemini"
	"github.com/eleven-am/streamsight/internal/transcript"
)

const commandTimeout = 30 * time.Second

func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func openTranscripts(cfg *bootstrap.Config) (*transcript.Store, error) {
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("DATABASE_DSN is not set")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return transcript.NewStore(db), nil
}

func openQdrant(cfg *bootstrap.Config) (*qdrant.Client, error) {
	return qdrant.NewClient(&qdrant.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
	})
}

func newMigrateCmd() *cobra.Command {
	var skipQdrant bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the transcript table and the context collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := bootstrap.LoadConfig()
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			out := cmd.OutOrStdout()
			if cfg.DatabaseDSN != "" {
				store, err := openTranscripts(cfg)
				if err != nil {
					return err
				}
				if err := store.Migrate(); err != nil {
					return fmt.Errorf("migrate transcripts: %w", err)
				}
				fmt.Fprintln(out, "transcript archive migrated")
			} else {
				fmt.Fprintln(out, "DATABASE_DSN not set, skipping transcript archive")
			}

			if skipQdrant {
				return nil
			}
			client, err := openQdrant(cfg)
			if err != nil {
				return fmt.Errorf("connect to qdrant: %w", err)
			}
			defer func() { _ = client.Close() }()

			store := contextstore.NewQdrantStore(client, cfg.QdrantCollection, cliLogger())
			if err := store.EnsureCollection(ctx, cfg.EmbeddingDimensions); err != nil {
				return err
			}
			fmt.Fprintf(out, "context collection %q ready\n", cfg.QdrantCollection)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipQdrant, "skip-qdrant", false, "Only migrate the transcript archive")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var sessionID, prompt, response string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a prior exchange into a session's context history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" || prompt == "" || response == "" {
				return errors.New("--session, --prompt and --response are required")
			}

			cfg := bootstrap.LoadConfig()
			log := cliLogger()
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			pool, err := credentials.FromEnv(os.LookupEnv, log)
			if err != nil {
				return err
			}
			client, err := openQdrant(cfg)
			if err != nil {
				return fmt.Errorf("connect to qdrant: %w", err)
			}
			defer func() { _ = client.Close() }()

			embedder := gemini.NewEmbedder(pool, gemini.NewClients(log), cfg.EmbeddingModel, cfg.EmbeddingDimensions, log)
			store := contextstore.NewQdrantStore(client, cfg.QdrantCollection, log)
			if err := store.EnsureCollection(ctx, embedder.Dimensions()); err != nil {
				return err
			}

			retriever := contextstore.NewRetriever(store, embedder, contextstore.JoinRecent, log)
			if err := retriever.Save(ctx, prompt, response, sessionID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded exchange for session %s\n", sessionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to seed")
	cmd.Flags().StringVar(&prompt, "prompt", "", "User side of the exchange")
	cmd.Flags().StringVar(&response, "response", "", "Assistant side of the exchange")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: "Print archived exchanges for a session, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openTranscripts(bootstrap.LoadConfig())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			exchanges, err := store.ListBySession(ctx, args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(exchanges) == 0 {
				fmt.Fprintln(out, "no exchanges archived for this session")
				return nil
			}
			for _, e := range exchanges {
				fmt.Fprintf(out, "[%s] %d frame(s), %dms\n%s\n\n",
					e.CreatedAt.Format(time.RFC3339), e.FrameCount, e.LatencyMs,
					contextstore.FormatExchange(e.Prompt, e.Response))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", transcript.DefaultListLimit, "Maximum exchanges to print")
	return cmd
}
