// Command git2gpt asks a chat model to edit the tracked files
// of a git repository, previews the proposed changes as a
// diff, applies them after confirmation and commits.
//
//	git2gpt [flags] "<instruction>"
//	git2gpt --ask "<question>"
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/byte4ever/git2gpt/chat"
	"github.com/byte4ever/git2gpt/config"
	"github.com/byte4ever/git2gpt/git2gpt"
	"github.com/byte4ever/git2gpt/gitops/git"
	"github.com/byte4ever/git2gpt/mutation"
	"github.com/byte4ever/git2gpt/prompt"
	"github.com/byte4ever/git2gpt/ui"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitConfig     = 2
	exitRepository = 3
	exitMalformed  = 4
	exitRemote     = 5
)

// flags holds the command-line options.
type flags struct {
	repo       string
	ask        bool
	noDiff     bool
	skipCommit bool
	yes        bool
	allowNew   bool
	message    string
	model      string
	configFile string
	logLevel   string
	logFormat  string
}

// configError marks failures to load settings or build the
// chat client.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }

func (e *configError) Unwrap() error { return e.err }

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)

	cmd := newRootCmd()

	err := cmd.ExecuteContext(ctx)

	cancel()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "git2gpt [flags] <prompt>",
		Short: "Let a chat model edit a git repository",
		Long: `git2gpt sends every tracked file of a git repository, together with your
instruction, to an OpenAI-compatible chat model. The model answers with a list of
file mutations which are shown as a diff, applied after confirmation and committed.

With --ask the model answers a question about the code instead and nothing is
modified.

The API key is read from the environment variable named by api_key_env in the
config file (OPENAI_API_KEY by default), after loading env_file (.env).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args[0])
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.repo, "repo", ".", "path to the git repository")
	fl.BoolVar(&f.ask, "ask", false, "ask a question about the code instead of editing it")
	fl.BoolVar(&f.noDiff, "no-diff", false, "apply without showing a diff or asking for confirmation")
	fl.BoolVar(&f.skipCommit, "skip-commit", false, "leave applied changes uncommitted")
	fl.BoolVarP(&f.yes, "yes", "y", false, "apply after the diff without asking")
	fl.BoolVar(&f.allowNew, "allow-new", false, "let the model create files that are not tracked yet")
	fl.StringVarP(&f.message, "message", "m", "", "commit subject (default from config)")
	fl.StringVar(&f.model, "model", "", "chat model (default from config)")
	fl.StringVar(&f.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/git2gpt/config.yaml)")
	fl.StringVar(&f.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	fl.StringVar(&f.logFormat, "log-format", "text", "log format (text, json)")

	return cmd
}

func run(cmd *cobra.Command, f flags, userPrompt string) error {
	slog.SetDefault(setupLogger(cmd.ErrOrStderr(), f.logLevel, f.logFormat))

	cfg, err := loadConfig(f.configFile)
	if err != nil {
		return &configError{err: err}
	}

	if err := cfg.LoadEnv(); err != nil {
		return &configError{err: err}
	}

	if f.model != "" {
		cfg.Model = f.model
	}

	provider, err := cfg.Provider()
	if err != nil {
		return &configError{err: err}
	}

	subject := cfg.CommitMessage
	if f.message != "" {
		subject = f.message
	}

	console := ui.New(
		cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), color.NoColor,
	)

	err = git2gpt.Run(cmd.Context(), git2gpt.Options{
		RepoDir:       f.repo,
		Prompt:        userPrompt,
		Ask:           f.ask,
		NoDiff:        f.noDiff,
		SkipCommit:    f.skipCommit,
		Yes:           f.yes,
		AllowNew:      f.allowNew,
		CommitMessage: subject,
		ResponseFile:  cfg.ResponseFile,
		NoColor:       color.NoColor,
		Client:        provider,
		Prompts:       prompt.Builder{Persona: cfg.SystemPrompt},
		Console:       console,
	})
	if errors.Is(err, git2gpt.ErrDeclined) {
		console.Info("Changes discarded.")

		return nil
	}

	return err
}

// loadConfig reads the explicit config file, or the default
// one when it exists.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path, false)
	}

	path, err := config.DefaultPath()
	if err != nil {
		slog.Debug("no default config location", "error", err)

		return config.Default(), nil
	}

	return config.Load(path, true)
}

func setupLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level

	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: lvl}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var (
		cfgErr    *configError
		repoErr   *git.RepositoryError
		malformed *mutation.MalformedResponseError
		remote    *chat.RemoteServiceError
	)

	switch {
	case err == nil, errors.Is(err, git2gpt.ErrDeclined):
		return exitOK
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &repoErr):
		return exitRepository
	case errors.As(err, &malformed):
		return exitMalformed
	case errors.As(err, &remote):
		return exitRemote
	default:
		return exitFailure
	}
}
