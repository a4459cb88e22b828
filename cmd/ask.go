package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/oselz/docent/internal/app"
	"github.com/oselz/docent/internal/document"
	"github.com/oselz/docent/internal/rag"
)

var askDocumentPath string

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask a one-shot question without starting the server",
	Long: `Ask routes a single message through the full pipeline using a
throwaway session. With --document, the file is ingested first so the
answer is grounded in its text.

Slash commands work here too, e.g.:

  docent ask --document report.txt "what does the summary say?"
  docent ask "/chart 500"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askDocumentPath, "document", "", "path to a text file to ingest before asking")
	rootCmd.AddCommand(askCmd)
}

func runAsk(_ *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	sess := a.Sessions.Create(cfg.AnonymousUser)
	if err := a.Store.CreateSession(ctx, sess.ID, sess.UserID); err != nil {
		logger.Warn("failed to persist session", "error", err, "session_id", sess.ID)
	}

	if askDocumentPath != "" {
		if err := ingestFile(ctx, a, sess.ID, askDocumentPath); err != nil {
			return err
		}
		sessDoc := filepath.Base(askDocumentPath)
		fmt.Fprintf(os.Stderr, "Indexed %s (%d chunks)\n", sessDoc, sess.Index.Len())
	}

	message := strings.Join(args, " ")

	streamed := false
	var answer rag.Answer
	err = a.Dispatcher.Do(ctx, sess.ID, func(taskCtx context.Context) error {
		var handleErr error
		answer, handleErr = a.Router.Handle(taskCtx, sess, message, func(_ context.Context, chunk string) error {
			streamed = true
			fmt.Print(chunk)
			return nil
		})
		return handleErr
	})
	if err != nil {
		return fmt.Errorf("handling message: %w", err)
	}

	if streamed {
		fmt.Println()
	} else {
		fmt.Println(answer.Text)
	}

	if answer.Grounded {
		fmt.Fprintf(os.Stderr, "\nGrounded in %d chunk(s) of %s\n", len(answer.Sources), sess.DocumentName)
	}
	return nil
}

// ingestFile reads, ingests, and indexes path into the session.
func ingestFile(ctx context.Context, a *app.App, sessionID uuid.UUID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	doc := document.Document{Name: filepath.Base(path), Text: string(data)}
	sess, err := a.Sessions.Get(sessionID)
	if err != nil {
		return err
	}

	ingestErr := a.Dispatcher.Do(ctx, sess.ID, func(taskCtx context.Context) error {
		entries, err := a.Ingestor.Ingest(taskCtx, doc)
		if err != nil {
			return err
		}
		idx, err := a.BuildIndex(taskCtx, sess.ID, entries)
		if err != nil {
			return err
		}
		sess.SetIndex(idx, doc.Name)
		return nil
	})
	if ingestErr != nil {
		return fmt.Errorf("indexing document: %w", ingestErr)
	}
	return nil
}
