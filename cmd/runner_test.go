package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bowlstone/internal/identity"
	"github.com/desertthunder/bowlstone/internal/payment"
	"github.com/desertthunder/bowlstone/internal/reflection"
	"github.com/desertthunder/bowlstone/internal/shared"
	tu "github.com/desertthunder/bowlstone/internal/testing"
)

// testRunner returns a runner over an in-memory database and store.
func testRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = ":memory:"
	config.Storage.Backend = "memory"
	config.Storage.SaveRate = 0

	output := &bytes.Buffer{}
	r := NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(&bytes.Buffer{})})
	t.Cleanup(func() { r.close() })
	return r, output
}

// run executes args against a fresh command tree and returns what was written.
func run(t *testing.T, r *Runner, output *bytes.Buffer, args ...string) (string, error) {
	t.Helper()
	output.Reset()
	app := &cli.Command{Name: "bowl", Commands: r.register()}
	err := app.Run(context.Background(), append([]string{"bowl"}, args...))
	return output.String(), err
}

func mustRun(t *testing.T, r *Runner, output *bytes.Buffer, args ...string) string {
	t.Helper()
	out, err := run(t, r, output, args...)
	if err != nil {
		t.Fatalf("%v: unexpected error: %v", args, err)
	}
	return out
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := make(map[string]bool)
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "serve", "tui", "stones", "export", "reflect", "account", "upgrade"} {
			if !names[want] {
				t.Errorf("expected %q to be registered", want)
			}
		}
	})
}

func TestStones(t *testing.T) {
	t.Run("list shows the seed stones", func(t *testing.T) {
		r, output := testRunner(t)
		out := mustRun(t, r, output, "stones", "list")

		for _, want := range []string{"Bowl:  (empty)", "1. Respond to important emails  [1]", "5. Plan dinner for tonight  [5]"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
	})

	t.Run("edits persist between commands", func(t *testing.T) {
		r, output := testRunner(t)

		mustRun(t, r, output, "stones", "move", "--before", "1", "4")
		mustRun(t, r, output, "stones", "focus", "2")
		out := mustRun(t, r, output, "stones", "add", "water plants")
		if !strings.Contains(out, `Added "water plants"`) {
			t.Errorf("unexpected add output %q", out)
		}

		out = mustRun(t, r, output, "stones", "list")
		for _, want := range []string{
			"Bowl:  Prepare presentation for tomorrow  [2]",
			"1. Meditate for 5 minutes  [4]",
			"2. Respond to important emails  [1]",
			"5. water plants",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
	})

	t.Run("focus refuses an occupied bowl and swap replaces it", func(t *testing.T) {
		r, output := testRunner(t)
		mustRun(t, r, output, "stones", "focus", "1")

		if _, err := run(t, r, output, "stones", "focus", "3"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected invalid argument, got %v", err)
		}

		out := mustRun(t, r, output, "stones", "swap", "3")
		if !strings.Contains(out, "In the bowl: Go for a 15-minute walk") {
			t.Errorf("unexpected swap output %q", out)
		}

		out = mustRun(t, r, output, "stones", "list", "--json")
		if !strings.Contains(out, `"tier": "member"`) {
			t.Errorf("expected tier in json:\n%s", out)
		}

		mustRun(t, r, output, "stones", "done")
		out = mustRun(t, r, output, "stones", "list")
		if !strings.Contains(out, "Bowl:  (empty)") || !strings.Contains(out, "Respond to important emails  [1]") {
			t.Errorf("expected the swapped out task back in the list:\n%s", out)
		}
		if strings.Contains(out, "15-minute walk") {
			t.Errorf("completed task should be gone:\n%s", out)
		}
	})

	t.Run("done on an empty bowl", func(t *testing.T) {
		r, output := testRunner(t)
		if out := mustRun(t, r, output, "stones", "done"); !strings.Contains(out, "The bowl is empty") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("argument errors", func(t *testing.T) {
		r, output := testRunner(t)

		tt := []struct {
			args []string
			want error
		}{
			{args: []string{"stones", "add", "   "}, want: shared.ErrMissingArgument},
			{args: []string{"stones", "move", "--before", "1", "9"}, want: shared.ErrNotFound},
			{args: []string{"stones", "move", "--before", "9", "1"}, want: shared.ErrNotFound},
			{args: []string{"stones", "focus", "9"}, want: shared.ErrNotFound},
			{args: []string{"stones", "swap"}, want: shared.ErrMissingArgument},
			{args: []string{"export", "--format", "pdf", "--stdout"}, want: shared.ErrInvalidArgument},
		}

		for _, tc := range tt {
			t.Run(strings.Join(tc.args, " "), func(t *testing.T) {
				if _, err := run(t, r, output, tc.args...); !errors.Is(err, tc.want) {
					t.Errorf("expected %v, got %v", tc.want, err)
				}
			})
		}
	})

	t.Run("guest", func(t *testing.T) {
		r, output := testRunner(t)

		out := mustRun(t, r, output, "stones", "list", "--guest")
		if !strings.Contains(out, "2 of 2 stones used") || strings.Contains(out, "Go for a 15-minute walk") {
			t.Errorf("expected the first two stones only:\n%s", out)
		}

		if _, err := run(t, r, output, "stones", "add", "--guest", "third"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected the guest limit, got %v", err)
		}

		out = mustRun(t, r, output, "stones", "focus", "--guest", "1")
		if !strings.Contains(out, "not saved") {
			t.Errorf("expected a guest note, got %q", out)
		}

		out = mustRun(t, r, output, "stones", "list")
		if !strings.Contains(out, "Bowl:  (empty)") {
			t.Errorf("guest changes must not be saved:\n%s", out)
		}
	})
}

func TestExport(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		r, output := testRunner(t)
		out := mustRun(t, r, output, "export", "--format", "md", "--stdout")

		if !strings.Contains(out, "# Bowl and Stone") || !strings.Contains(out, "- [ ] Respond to important emails") {
			t.Errorf("unexpected markdown:\n%s", out)
		}
	})

	t.Run("file", func(t *testing.T) {
		r, output := testRunner(t)
		path := filepath.Join(t.TempDir(), "out", "board.csv")

		out := mustRun(t, r, output, "export", "-f", "csv", "-o", path)
		if !strings.Contains(out, path) {
			t.Errorf("expected the path in %q", out)
		}
		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.HasPrefix(content, "Position,ID,Text,Place") {
			t.Errorf("unexpected csv:\n%s", content)
		}
	})
}

func TestReflect(t *testing.T) {
	r, output := testRunner(t)
	out := strings.TrimSpace(mustRun(t, r, output, "reflect"))

	found := false
	for _, text := range reflection.Builtin {
		if out == text {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a built-in reflection, got %q", out)
	}
}

func TestAccount(t *testing.T) {
	const email = "stone@example.com"

	t.Run("sign up, sign out and sign in", func(t *testing.T) {
		r, output := testRunner(t)

		out := mustRun(t, r, output, "account", "signup", "-e", email, "-p", "secret1")
		if !strings.Contains(out, "Signed in as "+email+" (member)") {
			t.Errorf("unexpected signup output %q", out)
		}

		out = mustRun(t, r, output, "account", "whoami")
		if !strings.Contains(out, email) {
			t.Errorf("unexpected whoami output %q", out)
		}

		mustRun(t, r, output, "account", "signout")
		out = mustRun(t, r, output, "account", "whoami")
		if !strings.Contains(out, "Not signed in (member, local mode)") {
			t.Errorf("unexpected whoami output %q", out)
		}

		if _, err := run(t, r, output, "account", "signin", "-e", email, "-p", "wrong-password"); !errors.Is(err, identity.ErrInvalidCredential) {
			t.Errorf("expected invalid credential, got %v", err)
		}
		mustRun(t, r, output, "account", "signin", "-e", email, "-p", "secret1")
	})

	t.Run("owner", func(t *testing.T) {
		r, output := testRunner(t)
		r.config.Owner.Email = email

		out := mustRun(t, r, output, "account", "signup", "-e", email, "-p", "secret1")
		if !strings.Contains(out, "(owner)") {
			t.Errorf("expected owner tier, got %q", out)
		}
	})

	t.Run("errors", func(t *testing.T) {
		r, output := testRunner(t)

		if _, err := run(t, r, output, "account", "signin"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
		if _, err := run(t, r, output, "account", "signin", "--provider", "myspace"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
		if _, err := run(t, r, output, "account", "signin", "--provider", "google"); !errors.Is(err, identity.ErrNotConfigured) {
			t.Errorf("expected not configured, got %v", err)
		}
		if out := mustRun(t, r, output, "account", "signout"); !strings.Contains(out, "Not signed in") {
			t.Errorf("unexpected signout output %q", out)
		}
	})
}

func fakePayPal(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("POST /v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"ORDER-9","status":"CREATED","links":[{"href":"https://paypal.test/approve/ORDER-9","rel":"approve"}]}`)
	})
	mux.HandleFunc("POST /v2/checkout/orders/{id}/capture", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":%q,"status":"COMPLETED"}`, r.PathValue("id"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestUpgrade(t *testing.T) {
	t.Run("order and capture lift the guest limit", func(t *testing.T) {
		srv := fakePayPal(t)
		r, output := testRunner(t)
		r.config.Credentials.PayPal.ClientID = "client"
		r.config.Credentials.PayPal.ClientSecret = "secret"
		r.config.Credentials.PayPal.BaseURL = srv.URL
		r.httpClient = srv.Client()

		out := mustRun(t, r, output, "upgrade", "order", "--no-browser")
		if !strings.Contains(out, "https://paypal.test/approve/ORDER-9") {
			t.Errorf("expected the approval link in %q", out)
		}

		mustRun(t, r, output, "upgrade", "capture", "--order", "ORDER-9")

		out = mustRun(t, r, output, "account", "whoami")
		if !strings.Contains(out, "Pro upgrade: unlocked") {
			t.Errorf("expected the unlock, got %q", out)
		}
		mustRun(t, r, output, "stones", "add", "--guest", "third")
	})

	t.Run("not configured", func(t *testing.T) {
		r, output := testRunner(t)
		if _, err := run(t, r, output, "upgrade", "capture", "--order", "ORDER-9"); !errors.Is(err, payment.ErrNotConfigured) {
			t.Errorf("expected not configured, got %v", err)
		}
	})

	t.Run("paypal unreachable", func(t *testing.T) {
		r, output := testRunner(t)
		r.config.Credentials.PayPal.ClientID = "client"
		r.config.Credentials.PayPal.ClientSecret = "secret"
		r.httpClient = &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}

		if _, err := run(t, r, output, "upgrade", "order", "--no-browser"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected api request error, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		r, output := testRunner(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		mustRun(t, r, output, "setup", "config", "-c", path)
		tu.AssertFileExists(t, path)

		if _, err := run(t, r, output, "setup", "config", "-c", path); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected an error for an existing file, got %v", err)
		}
	})

	t.Run("database creates a missing config", func(t *testing.T) {
		tu.MustChdir(t, t.TempDir())
		r, output := testRunner(t)

		out := mustRun(t, r, output, "setup", "database", "-c", "config.toml")
		if !strings.Contains(out, "Database ready") {
			t.Errorf("unexpected output %q", out)
		}
		tu.AssertFileExists(t, "config.toml")
		tu.AssertFileExists(t, "bowl.db")
	})
}

func TestTUI(t *testing.T) {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		t.Skip("stdout is a terminal")
	}

	r, output := testRunner(t)
	if _, err := run(t, r, output, "tui"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected a terminal error, got %v", err)
	}
}
