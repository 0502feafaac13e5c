package git2gpt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/byte4ever/git2gpt/applier"
	"github.com/byte4ever/git2gpt/chat"
	"github.com/byte4ever/git2gpt/diffview"
	"github.com/byte4ever/git2gpt/gitops/commitmsg"
	"github.com/byte4ever/git2gpt/gitops/git"
	"github.com/byte4ever/git2gpt/mutation"
	"github.com/byte4ever/git2gpt/prompt"
	"github.com/byte4ever/git2gpt/snapshot"
	"github.com/byte4ever/git2gpt/ui"
)

// DefaultCommitMessage is the commit subject used when
// Options.CommitMessage is empty.
const DefaultCommitMessage = "Applied GPT-4 suggested changes."

// ErrDeclined is returned when the operator does not confirm
// the previewed changes. Nothing has been written.
var ErrDeclined = errors.New("changes declined")

// ErrStale is returned when a file targeted by a mutation
// changed between the snapshot and the apply step. Nothing
// has been written.
var ErrStale = errors.New("files changed since the snapshot was taken")

var (
	errNoClient    = errors.New("no chat client configured")
	errNothingToDo = errors.New("nothing to do")
)

// Options holds all settings for one run.
type Options struct {
	// RepoDir is the working tree to operate on.
	RepoDir string

	// Prompt is the instruction, or the question in ask
	// mode.
	Prompt string

	// Ask prints the model's answer instead of editing.
	Ask bool

	// NoDiff applies without preview or confirmation.
	NoDiff bool

	// SkipCommit leaves applied changes uncommitted.
	SkipCommit bool

	// Yes applies after the preview without asking.
	Yes bool

	// AllowNew lets add create files that are not tracked
	// yet.
	AllowNew bool

	// CommitMessage is the commit subject line.
	CommitMessage string

	// ResponseFile receives unparseable replies.
	ResponseFile string

	// NoColor disables colored diffs.
	NoColor bool

	// Client talks to the chat model.
	Client chat.Client

	// Prompts builds the conversation.
	Prompts prompt.Builder

	// Console receives operator output. Defaults to the
	// standard streams.
	Console *ui.Console
}

// Run executes one git2gpt invocation.
func Run(ctx context.Context, opts Options) error {
	const errCtx = "running git2gpt"

	if opts.Client == nil {
		return fmt.Errorf("%s: %w", errCtx, errNoClient)
	}

	if opts.Console == nil {
		opts.Console = ui.New(os.Stdin, os.Stdout, os.Stderr, opts.NoColor)
	}

	// Step 1: Snapshot the tracked files.
	repo, err := git.Open(ctx, opts.RepoDir)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	snap, err := snapshot.Build(ctx, repo)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	payload, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if opts.Ask {
		return ask(ctx, opts, payload)
	}

	// Step 2: Ask the model for mutations.
	mutations, err := requestMutations(ctx, opts, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if len(mutations) == 0 {
		opts.Console.Info("The model proposed no changes.")

		return nil
	}

	// Step 3: Drop mutations outside the tracked set.
	tracked, err := repo.TrackedFiles(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	ap := applier.New(repo.Dir, tracked, opts.AllowNew)

	accepted, skipped := ap.Partition(mutations)
	reportSkipped(opts.Console, skipped)

	if len(accepted) == 0 {
		opts.Console.Warning("No applicable changes.")

		return nil
	}

	// Step 4: Preview and confirm.
	if !opts.NoDiff {
		if err := preview(opts, repo.Dir, accepted); err != nil {
			if errors.Is(err, errNothingToDo) {
				opts.Console.Info("The proposed changes match the working tree.")

				return nil
			}

			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	// Step 5: Refuse to overwrite edits made meanwhile.
	stale, err := snap.Stale(repo.Dir, targets(accepted))
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if len(stale) > 0 {
		opts.Console.Error("Changed since the snapshot:")
		opts.Console.List(stale)

		return fmt.Errorf("%s: %w", errCtx, ErrStale)
	}

	// Step 6: Apply.
	res, err := ap.Apply(accepted)
	if err != nil {
		opts.Console.Error(
			"The working tree may be partially modified. " +
				"Run `git reset --hard` to discard the changes.",
		)

		return fmt.Errorf("%s: %w", errCtx, err)
	}

	applied := changeLines(res.Applied)

	opts.Console.Success("Applied %d change(s):", len(applied))
	opts.Console.List(applied)

	if opts.SkipCommit {
		slog.Info("commit skipped")

		return nil
	}

	// Step 7: Commit.
	if err := commit(ctx, opts, repo, applied); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func ask(ctx context.Context, opts Options, payload string) error {
	const errCtx = "asking question"

	reply, err := opts.Client.Send(ctx, opts.Prompts.Ask(payload, opts.Prompt))
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if !strings.HasSuffix(reply, "\n") {
		reply += "\n"
	}

	opts.Console.Print(reply)

	return nil
}

func requestMutations(
	ctx context.Context,
	opts Options,
	payload string,
) ([]mutation.Mutation, error) {
	const errCtx = "requesting mutations"

	reply, err := opts.Client.Send(ctx, opts.Prompts.Edit(payload, opts.Prompt))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug("model replied", "bytes", len(reply))

	mutations, err := mutation.Parser{DumpPath: opts.ResponseFile}.Parse(reply)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("model proposed mutations", "count", len(mutations))

	return mutations, nil
}

// preview prints the diff and asks for confirmation unless
// opts.Yes is set.
func preview(opts Options, root string, accepted []mutation.Mutation) error {
	r := diffview.Renderer{Out: opts.Console.Out, NoColor: opts.NoColor}

	opts.Console.Header("Proposed changes:")

	changed, err := r.Render(root, accepted)
	if err != nil {
		return err
	}

	if changed == 0 {
		return errNothingToDo
	}

	if opts.Yes {
		return nil
	}

	if !opts.Console.Confirm("Apply these changes?") {
		return ErrDeclined
	}

	return nil
}

func reportSkipped(c *ui.Console, skipped []applier.Skipped) {
	if len(skipped) == 0 {
		return
	}

	lines := make([]string, 0, len(skipped))
	for _, s := range skipped {
		lines = append(lines, fmt.Sprintf("%s (%s)", s.Mutation, s.Reason))
	}

	c.Warning("Skipping %d change(s):", len(lines))
	c.List(lines)
}

func commit(
	ctx context.Context,
	opts Options,
	repo *git.Repo,
	applied []string,
) error {
	subject := opts.CommitMessage
	if strings.TrimSpace(subject) == "" {
		subject = DefaultCommitMessage
	}

	msg := commitmsg.Generate(subject, opts.Prompt, applied)

	committed, err := repo.Commit(ctx, msg)
	if err != nil {
		return err
	}

	if !committed {
		opts.Console.Info("Nothing to commit.")

		return nil
	}

	head, err := repo.HeadCommit(ctx)
	if err != nil {
		return err
	}

	recorded := commitmsg.ExtractChanges(repo.GetLastCommitMessage(ctx))

	slog.Info("committed changes", "commit", head, "changes", len(recorded))
	opts.Console.Success(
		"Committed %s (%d change(s) recorded).",
		shortHash(head), len(recorded),
	)

	return nil
}

func targets(mutations []mutation.Mutation) []string {
	paths := make([]string, 0, len(mutations))
	for _, m := range mutations {
		paths = append(paths, m.FilePath)
	}

	return paths
}

func changeLines(mutations []mutation.Mutation) []string {
	lines := make([]string, 0, len(mutations))
	for _, m := range mutations {
		lines = append(lines, m.String())
	}

	return lines
}

func shortHash(h string) string {
	const n = 7
	if len(h) > n {
		return h[:n]
	}

	return h
}
