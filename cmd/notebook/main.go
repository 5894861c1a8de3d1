package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gopherai-notebook/internal/app"
	"gopherai-notebook/internal/bootstrap"
	"gopherai-notebook/internal/config"
	"gopherai-notebook/internal/ingest"
	"gopherai-notebook/internal/model"
	"gopherai-notebook/internal/pkg/jwtutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var ingestURL string

	root := &cobra.Command{
		Use:           "notebook",
		Short:         "Build notebooks from documents and chat with them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&ingestURL, "ingest-url", "", "ingestion service base URL (overrides config)")

	root.AddCommand(newCreateCmd(&ingestURL))
	root.AddCommand(newListCmd(&ingestURL))
	root.AddCommand(newDeleteCmd(&ingestURL))
	root.AddCommand(newAddSourceCmd(&ingestURL))
	root.AddCommand(newAskCmd(&ingestURL))
	root.AddCommand(newChatCmd(&ingestURL))
	root.AddCommand(newModelsCmd(&ingestURL))
	root.AddCommand(newSwitchModelCmd(&ingestURL))
	root.AddCommand(newPodcastCmd(&ingestURL))
	root.AddCommand(newTokenCmd())
	return root
}

func loadApp(ingestURL string) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if ingestURL != "" {
		cfg.Ingest.BaseURL = ingestURL
	}
	return bootstrap.NewCore(cfg), nil
}

// sourceFlags are shared by create and add-source.
type sourceFlags struct {
	files []string
	urls  []string
	texts []string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.files, "file", nil, "local file to include (repeatable)")
	cmd.Flags().StringArrayVar(&f.urls, "url", nil, "web page to include (repeatable)")
	cmd.Flags().StringArrayVar(&f.texts, "text", nil, "plain text to include (repeatable)")
}

func (f *sourceFlags) sources() ([]model.Source, error) {
	var out []model.Source
	for _, path := range f.files {
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s failed: %w", path, err)
		}
		out = append(out, model.NewFileSource(filepath.Base(path), payload, ""))
	}
	for _, u := range f.urls {
		out = append(out, model.NewURLSource(u))
	}
	for _, t := range f.texts {
		out = append(out, model.NewTextSource(t))
	}
	return out, nil
}

func newCreateCmd(ingestURL *string) *cobra.Command {
	var (
		title        string
		chunkSize    int
		chunkOverlap int
		flags        sourceFlags
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a notebook from files, URLs and text",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*ingestURL)
			if err != nil {
				return err
			}
			defer a.Close()

			sources, err := flags.sources()
			if err != nil {
				return err
			}
			flow := a.NewFlow(uuid.NewString())
			if chunkSize > 0 {
				flow.Collector().SetChunkHints(chunkSize, chunkOverlap)
			}
			for _, src := range sources {
				flow.Collector().Add(src)
			}

			errOut := cmd.ErrOrStderr()
			flow.Progress().Subscribe(func(state model.ProgressState) {
				_, _ = fmt.Fprintf(errOut, "\r%s", progressBar(state.Value))
			})

			status, err := flow.Run(cmd.Context(), title)
			_, _ = fmt.Fprintln(errOut)
			if err != nil {
				if errors.Is(err, app.ErrNoSources) {
					return errors.New("add at least one --file, --url or --text")
				}
				return err
			}
			if status.Phase != app.FlowCompleted || status.Notebook == nil {
				return errors.New("notebook creation cancelled")
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, notebookLine(*status.Notebook))
			for _, line := range resultLines(status.Result) {
				_, _ = fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "notebook title")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "chunk size hint for the ingestion service")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "chunk overlap hint for the ingestion service")
	flags.register(cmd)
	return cmd
}

func newListCmd(ingestURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notebooks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*ingestURL)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			notebooks, err := a.Registry.List(cmd.Context())
			if err != nil {
				_, _ = fmt.Fprintln(out, errorStyle.Render("ingestion service unavailable: ")+mutedStyle.Render(err.Error()))
				return nil
			}
			if len(notebooks) == 0 {
				_, _ = fmt.Fprintln(out, mutedStyle.Render("no notebooks"))
				return nil
			}
			for _, nb := range notebooks {
				_, _ = fmt.Fprintln(out, notebookLine(nb))
			}
			return nil
		},
	}
}

func newDeleteCmd(ingestURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <notebook-id>",
		Short: "Delete a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*ingestURL)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Registry.Remove(cmd.Context(), args[0]) {
				return fmt.Errorf("delete %s failed", args[0])
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("deleted ")+args[0])
			return nil
		},
	}
}

func newAddSourceCmd(ingestURL *string) *cobra.Command {
	var flags sourceFlags
	cmd := &cobra.Command{
		Use:   "add-source <notebook-id>",
		Short: "Upload more sources into an existing notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*ingestURL)
			if err != nil {
				return err
			}
			defer a.Close()

			sources, err := flags.sources()
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return errors.New("add at least one --file, --url or --text")
			}
			submitter := app.NewSessionSubmitter(a.Ingest, app.NewProgressReporter(a.ProgressOptions()...), a.Logger)
			out := cmd.OutOrStdout()
			for _, src := range sources {
				result, err := submitter.Append(cmd.Context(), args[0], src)
				if err != nil {
					return err
				}
				for _, line := range resultLines(result) {
					_, _ = fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newAskCmd(ingestURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <notebook-id> <question...>",
		Short: "Ask a single question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*ingestURL)
			if err != nil {
				return err
			}
			defer a.Close()

			chat := a.NewChat(args[0])
			defer chat.Close()
			msg, err := chat.Ask(cmd.Context(), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), messageLine(msg))
			if last := chat.LastError(); last != "" {
				return errors.New(last)
			}
			return nil
		},
	}
}

func newChatCmd(ingestURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <notebook-id>",
		Short: "Chat with a notebook interactively (/quit to leave)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*ingestURL)
			if err != nil {
				return err
			}
			defer a.Close()

			chat := a.NewChat(args[0])
			defer chat.Close()
			return runChat(cmd.Context(), chat, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runChat(ctx context.Context, chat *app.ChatOrchestrator, in io.Reader, out io.Writer) error {
	_, _ = fmt.Fprintln(out, mutedStyle.Render("chatting with "+chat.SessionID()+", /quit to leave"))
	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, userStyle.Render("> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "/quit" {
			return nil
		}

		msg, err := chat.Ask(ctx, line)
		switch {
		case errors.Is(err, app.ErrEmptyQuery):
			continue
		case err != nil:
			return err
		}
		_, _ = fmt.Fprintln(out, messageLine(msg))
		if last := chat.LastError(); last != "" {
			_, _ = fmt.Fprintln(out, errorStyle.Render("! ")+mutedStyle.Render(last))
			chat.DismissError()
		}
	}
}

func newModelsCmd(ingestURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models offered by the ingestion service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*ingestURL)
			if err != nil {
				return err
			}
			defer a.Close()

			models, err := a.Ingest.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range models {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", titleStyle.Render(m.Name),
					mutedStyle.Render(fmt.Sprintf("%s · $%.2f/M tokens", m.Provider, m.CostPerMillionTokens)))
			}
			return nil
		},
	}
}

func newSwitchModelCmd(ingestURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "switch-model <notebook-id> <model>",
		Short: "Change the model answering a notebook's questions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*ingestURL)
			if err != nil {
				return err
			}
			defer a.Close()

			message, err := a.Ingest.SwitchModel(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(message))
			return nil
		},
	}
}

func newPodcastCmd(ingestURL *string) *cobra.Command {
	var req ingest.PodcastRequest
	cmd := &cobra.Command{
		Use:   "podcast <notebook-id>",
		Short: "Generate a two-voice podcast from a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*ingestURL)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Ingest.Podcast(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.AudioURL != "" {
				_, _ = fmt.Fprintln(out, titleStyle.Render("audio: ")+result.AudioURL)
			}
			_, _ = fmt.Fprintln(out, result.Transcript)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Topic, "topic", "", "podcast topic")
	cmd.Flags().StringVar(&req.Voice1, "voice1", "alloy", "first voice")
	cmd.Flags().StringVar(&req.Voice2, "voice2", "echo", "second voice")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := jwtutil.GenerateToken(cfg.Auth.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
