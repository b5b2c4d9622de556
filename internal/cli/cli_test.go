package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ctfdojo/internal/devtools"
	"ctfdojo/internal/state"

	"github.com/charmbracelet/x/ansi"
)

// isolateEnv clears CTFDOJO_* overrides that would leak in from the shell.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CTFDOJO_CATALOG", "CTFDOJO_DURATION", "CTFDOJO_UI_STYLE", "CTFDOJO_SEED", "CTFDOJO_DATA_DIR"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append(args, "--data-dir", t.TempDir()))
	err := cmd.Execute()
	return ansi.Strip(buf.String()), err
}

func TestCatalogsListAndShow(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, "catalogs", "list")
	if err != nil {
		t.Fatalf("catalogs list: %v", err)
	}
	for _, want := range []string{"dns", "eggs", "Reika's Domain CTF"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "catalogs", "show", "dns")
	if err != nil {
		t.Fatalf("catalogs show: %v", err)
	}
	if !strings.Contains(out, "You have 10 minutes to capture 5 flags") || !strings.Contains(out, "Subdomain Discovery") {
		t.Fatalf("unexpected show output:\n%s", out)
	}
	if strings.Contains(out, "CTF{") {
		t.Fatalf("show must not print flags:\n%s", out)
	}

	if _, err := run(t, "catalogs", "show", "nope"); err == nil {
		t.Fatalf("expected an error for an unknown catalog")
	}
}

func TestCatalogsValidate(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, "catalogs", "validate", filepath.Join("..", "catalog", "builtin"))
	if err != nil {
		t.Fatalf("validate builtin: %v", err)
	}
	if !strings.Contains(out, "ok  dns") || !strings.Contains(out, "ok  eggs") {
		t.Fatalf("unexpected validate output:\n%s", out)
	}

	dir := t.TempDir()
	bad := "kind: catalog\nschema_version: 1\ncatalog_id: broken\nname: Broken\nchallenges: []\n"
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "catalogs", "validate", dir); err == nil {
		t.Fatalf("expected a validation error")
	}
}

func TestDemoTranscript(t *testing.T) {
	isolateEnv(t)
	snapshot := filepath.Join(t.TempDir(), "won.json")

	out, err := run(t, "demo", "won", "--catalog", "eggs", "--snapshot", snapshot)
	if err != nil {
		t.Fatalf("demo won: %v", err)
	}
	if !strings.Contains(out, "catalog=eggs phase=over outcome=won flags=5/5") {
		t.Fatalf("unexpected demo status:\n%s", out)
	}
	if !strings.Contains(out, "submit ") {
		t.Fatalf("transcript should echo the typed commands:\n%s", out)
	}
	if _, err := os.Stat(snapshot); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}

	_, err = run(t, "demo", "teleport")
	if !errors.Is(err, devtools.ErrUnknownScenario) {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv("CTFDOJO_DURATION", "120")

	out, err := run(t, "demo", "playing")
	if err != nil {
		t.Fatalf("demo playing: %v", err)
	}
	if !strings.Contains(out, "clock=2:00") {
		t.Fatalf("expected the env duration:\n%s", out)
	}

	out, err = run(t, "demo", "playing", "--duration", "90")
	if err != nil {
		t.Fatalf("demo playing: %v", err)
	}
	if !strings.Contains(out, "clock=1:30") {
		t.Fatalf("expected the flag duration to win:\n%s", out)
	}

	if _, err := run(t, "catalogs", "list", "--style", "neon"); err == nil || !strings.Contains(err.Error(), "invalid ui style") {
		t.Fatalf("expected a style validation error, got %v", err)
	}
}

func TestEnvFileIsLoaded(t *testing.T) {
	isolateEnv(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("CTFDOJO_CATALOG=easter\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "demo", "playing", "--env-file", envFile)
	if err != nil {
		t.Fatalf("demo playing: %v", err)
	}
	if !strings.Contains(out, "catalog=eggs") {
		t.Fatalf("expected the dotenv catalog:\n%s", out)
	}

	if _, err := run(t, "demo", "playing", "--env-file", filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("a missing env file should be ignored: %v", err)
	}
}

func TestStatsReportsHistory(t *testing.T) {
	isolateEnv(t)
	dataDir := t.TempDir()

	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"stats", "--data-dir", dataDir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("stats on empty history: %v", err)
	}
	out := ansi.Strip(buf.String())
	if !strings.Contains(out, "Rounds: 0") || !strings.Contains(out, "No finished rounds yet.") {
		t.Fatalf("unexpected empty stats:\n%s", out)
	}

	store, err := state.NewSQLite(filepath.Join(dataDir, "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	start := time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC)
	id, err := store.StartRound(ctx, state.Round{SessionID: "s-1", CatalogID: "dns", Total: 5, StartTS: start})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.FinishRound(ctx, id, state.RoundFinish{Outcome: "won", Completed: 5, TimeRemaining: 125, EndTS: start.Add(8 * time.Minute)}); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	cmd = NewRootCommand()
	buf.Reset()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"stats", "--data-dir", dataDir, "--ascii"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}
	out = ansi.Strip(buf.String())
	for _, want := range []string{"Rounds: 1", "Wins: 1", "Best: 5/5 with 2:05 left", "won", "5/5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats missing %q:\n%s", want, out)
		}
	}
}
