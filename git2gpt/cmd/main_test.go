package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/git2gpt/chat"
	"github.com/byte4ever/git2gpt/git2gpt"
	"github.com/byte4ever/git2gpt/gitops/git"
	"github.com/byte4ever/git2gpt/gitops/git/gittest"
	"github.com/byte4ever/git2gpt/mutation"
)

const keyEnv = "GIT2GPT_CMD_TEST_KEY"

func TestExitCode(t *testing.T) {
	t.Parallel()

	wrap := func(err error) error { return fmt.Errorf("running git2gpt: %w", err) }

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitOK},
		{name: "declined", err: wrap(git2gpt.ErrDeclined), want: exitOK},
		{name: "config", err: &configError{err: errors.New("bad")}, want: exitConfig},
		{name: "repository", err: wrap(&git.RepositoryError{Dir: "/x", Op: "open"}), want: exitRepository},
		{name: "malformed", err: wrap(&mutation.MalformedResponseError{Raw: "x"}), want: exitMalformed},
		{name: "remote", err: wrap(&chat.RemoteServiceError{Provider: "openai"}), want: exitRemote},
		{name: "other", err: errors.New("boom"), want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name      string
		logLevel  string
		logFormat string
		logs      bool
	}{
		{name: "debug/text", logLevel: "debug", logFormat: "text", logs: true},
		{name: "info/json", logLevel: "info", logFormat: "json", logs: true},
		{name: "warn/text", logLevel: "warn", logFormat: "text"},
		{name: "error/text", logLevel: "error", logFormat: "text"},
		{name: "unknown/text", logLevel: "unknown", logFormat: "text"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			logger := setupLogger(&buf, tc.logLevel, tc.logFormat)
			require.NotNil(t, logger)

			logger.Info("hello")
			assert.Equal(t, tc.logs, buf.Len() > 0)

			if tc.logFormat == "json" {
				assert.True(t, strings.HasPrefix(buf.String(), "{"))
			}
		})
	}
}

// execute runs the root command and returns its exit code.
func execute(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()

	var out, errOut bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.ExecuteContext(context.Background())

	return exitCode(err), out.String(), errOut.String()
}

func chatServer(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		_, _ = io.Copy(io.Discard, r.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)

		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))

			return
		}

		body := fmt.Sprintf(
			`{"choices":[{"message":{"role":"assistant","content":%q}}]}`, reply,
		)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func writeConfig(t *testing.T, apiBase string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := fmt.Sprintf(
		"api_base: %s\napi_key_env: %s\nenv_file: %s\nresponse_file: %s\n",
		apiBase, keyEnv,
		filepath.Join(dir, "none.env"),
		filepath.Join(dir, "response.txt"),
	)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func newRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	gittest.InitRepo(t, dir)
	gittest.CommitFiles(t, dir, map[string]string{"a.txt": "hello\n"})

	return dir
}

func TestRoot_applies_and_commits(t *testing.T) {
	t.Setenv(keyEnv, "sk-test")

	srv := chatServer(
		t,
		`[{"action":"modify","file_path":"a.txt","content":"world\n"}]`,
		http.StatusOK,
	)
	repo := newRepo(t)

	code, out, _ := execute(
		t, "",
		"--config", writeConfig(t, srv.URL),
		"--repo", repo, "--yes", "-m", "Say world",
		"say world",
	)
	require.Equal(t, exitOK, code)

	assert.Contains(t, out, "+world\n")

	data, err := os.ReadFile(filepath.Join(repo, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world\n", string(data))

	subject := gittest.Git(t, repo, "log", "-1", "--pretty=%s")
	assert.Equal(t, "Say world", strings.TrimSpace(subject))
}

func TestRoot_declined_exits_zero(t *testing.T) {
	t.Setenv(keyEnv, "sk-test")

	srv := chatServer(
		t,
		`[{"action":"delete","file_path":"a.txt"}]`,
		http.StatusOK,
	)
	repo := newRepo(t)

	code, _, errOut := execute(
		t, "n\n",
		"--config", writeConfig(t, srv.URL),
		"--repo", repo,
		"remove a",
	)
	require.Equal(t, exitOK, code)

	assert.Contains(t, errOut, "Changes discarded.")
	assert.FileExists(t, filepath.Join(repo, "a.txt"))
}

func TestRoot_ask(t *testing.T) {
	t.Setenv(keyEnv, "sk-test")

	srv := chatServer(t, "It greets.", http.StatusOK)
	repo := newRepo(t)

	code, out, _ := execute(
		t, "",
		"--config", writeConfig(t, srv.URL),
		"--repo", repo, "--ask",
		"what is this?",
	)
	require.Equal(t, exitOK, code)
	assert.Equal(t, "It greets.\n", out)
}

func TestRoot_error_exit_codes(t *testing.T) {
	t.Setenv(keyEnv, "sk-test")

	ok := chatServer(t, "not json", http.StatusOK)
	failing := chatServer(t, "", http.StatusUnauthorized)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{
			name: "missing explicit config",
			args: []string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "p"},
			want: exitConfig,
		},
		{
			name: "not a repository",
			args: []string{"--config", writeConfig(t, ok.URL), "--repo", t.TempDir(), "p"},
			want: exitRepository,
		},
		{
			name: "malformed reply",
			args: []string{"--config", writeConfig(t, ok.URL), "--repo", newRepo(t), "p"},
			want: exitMalformed,
		},
		{
			name: "remote failure",
			args: []string{"--config", writeConfig(t, failing.URL), "--repo", newRepo(t), "p"},
			want: exitRemote,
		},
		{
			name: "missing prompt",
			args: []string{"--config", writeConfig(t, ok.URL)},
			want: exitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := execute(t, "", tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestRoot_missing_api_key(t *testing.T) {
	t.Setenv(keyEnv, "")

	code, _, _ := execute(
		t, "",
		"--config", writeConfig(t, "http://127.0.0.1:1"),
		"--repo", newRepo(t),
		"p",
	)
	assert.Equal(t, exitConfig, code)
}
