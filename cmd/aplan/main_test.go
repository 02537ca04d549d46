package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/aplan/internal/app"
	"github.com/evanschultz/aplan/internal/config"
	"github.com/evanschultz/aplan/internal/domain"
	"github.com/evanschultz/aplan/internal/platform"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv("APLAN_DEV_MODE", "false")
	os.Exit(m.Run())
}

// cliHarness runs commands against one temp database and config path.
type cliHarness struct {
	t       *testing.T
	dir     string
	dbPath  string
	cfgPath string
}

// newCLIHarness prepares an isolated workspace.
func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	dir := t.TempDir()
	return &cliHarness{
		t:       t,
		dir:     dir,
		dbPath:  filepath.Join(dir, "aplan.db"),
		cfgPath: filepath.Join(dir, "config.toml"),
	}
}

// run executes args and returns stdout, failing the test on error.
func (h *cliHarness) run(args ...string) string {
	h.t.Helper()
	out, err := h.tryRun(args...)
	if err != nil {
		h.t.Fatalf("run(%v) error = %v", args, err)
	}
	return out
}

// tryRun executes args and returns stdout and the command error.
func (h *cliHarness) tryRun(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	full := append([]string{"--db", h.dbPath, "--config", h.cfgPath}, args...)
	err := run(context.Background(), full, &out, io.Discard)
	return out.String(), err
}

// useFileBackend points the harness config at a snapshot dir inside the workspace.
func (h *cliHarness) useFileBackend() string {
	h.t.Helper()
	dir := filepath.Join(h.dir, "projects")
	cfg := "[storage]\nbackend = \"file\"\nsnapshot_dir = \"" + filepath.ToSlash(dir) + "\"\n"
	if err := os.WriteFile(h.cfgPath, []byte(cfg), 0o644); err != nil {
		h.t.Fatalf("WriteFile() error = %v", err)
	}
	return dir
}

// TestRunVersion verifies behavior for the covered scenario.
func TestRunVersion(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"--version"}, &out, io.Discard); err != nil {
		t.Fatalf("run(--version) error = %v", err)
	}
	if !strings.Contains(out.String(), version) {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

// TestRunInvalidFlag verifies behavior for the covered scenario.
func TestRunInvalidFlag(t *testing.T) {
	err := run(context.Background(), []string{"--unknown-flag"}, io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected flag parse error")
	}
}

// TestRunUnknownCommand verifies behavior for the covered scenario.
func TestRunUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"unknown-command"}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

// TestRunHierarchyFlow drives the core commands end to end.
func TestRunHierarchyFlow(t *testing.T) {
	h := newCLIHarness(t)

	if out := h.run("init", "Moon", "Base"); !strings.Contains(out, "created project Moon Base") {
		t.Fatalf("unexpected init output %q", out)
	}
	if out := h.run("add", "root", "Plan"); out != "added 1 Plan\n" {
		t.Fatalf("unexpected add output %q", out)
	}
	h.run("add", "1", "Scope")
	h.run("add", "1", "Budget")
	h.run("add", "root", "Build")
	h.run("value", "1.1", "4")
	h.run("value", "2", "6")
	if out := h.run("cost", "1.1", "2"); out != "1.1 actual cost 2 ✔\n" {
		t.Fatalf("unexpected cost output %q", out)
	}

	tree := h.run("tree")
	want := strings.Join([]string{
		"Moon Base ✗",
		"├─ 1 - Plan ✗ - []",
		"│  ├─ 1.1 - Scope ✔ - []",
		"│  └─ 1.2 - Budget ✗ - []",
		"└─ 2 - Build ✗ - []",
		"",
	}, "\n")
	if tree != want {
		t.Fatalf("unexpected tree\nwant:\n%s\ngot:\n%s", want, tree)
	}

	dot := h.run("dot")
	if !strings.HasPrefix(dot, "digraph G {\n") || !strings.Contains(dot, `"1 - Plan ✗ - []" -> "1.1 - Scope ✔ - []"`) {
		t.Fatalf("unexpected dot output %q", dot)
	}

	stats := h.run("stats", "--json")
	var metrics domain.EarnedValue
	if err := json.Unmarshal([]byte(stats), &metrics); err != nil {
		t.Fatalf("Unmarshal(stats) error = %v", err)
	}
	if metrics.PlannedValue != 10 || metrics.ActualCost != 2 || metrics.LeafCount != 3 || metrics.DoneCount != 1 {
		t.Fatalf("unexpected metrics %#v", metrics)
	}
	if table := h.run("stats"); !strings.Contains(table, "earned value") || !strings.Contains(table, "Moon Base") {
		t.Fatalf("unexpected stats table %q", table)
	}

	if out := h.run("rm", "1.1"); out != "removed 1.1 Scope\n" {
		t.Fatalf("unexpected rm output %q", out)
	}
	show := h.run("show", "1.1")
	if !strings.Contains(show, "name: Budget") || !strings.Contains(show, "id: 1.1") {
		t.Fatalf("expected Budget renumbered to 1.1, got %q", show)
	}
	if show := h.run("show", "root"); !strings.Contains(show, "planned_value: 6") || !strings.Contains(show, "actual_cost: 0") {
		t.Fatalf("unexpected root after remove %q", show)
	}

	if _, err := h.tryRun("rm", "1"); !errors.Is(err, domain.ErrTrunkCannotBeRemoved) {
		t.Fatalf("expected ErrTrunkCannotBeRemoved, got %v", err)
	}
	if _, err := h.tryRun("cost", "1", "3"); !errors.Is(err, domain.ErrTrunkCannotChangeCost) {
		t.Fatalf("expected ErrTrunkCannotChangeCost, got %v", err)
	}
	if _, err := h.tryRun("value", "1.1", "NaN"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if out := h.run("value", "--", "1.1", "-2"); out != "1.1 planned value -2\n" {
		t.Fatalf("unexpected negative correction output %q", out)
	}
	if _, err := h.tryRun("add", "1.0", "Bad"); !errors.Is(err, domain.ErrBadTaskIDString) {
		t.Fatalf("expected ErrBadTaskIDString, got %v", err)
	}
}

// TestRunListViews verifies behavior for the covered scenario.
func TestRunListViews(t *testing.T) {
	h := newCLIHarness(t)
	h.run("init", "Views")
	h.run("add", "root", "A")
	h.run("add", "root", "B")
	h.run("cost", "2", "1")

	if out := h.run("ls", "--view", "done"); out != "2 - B ✔ - []\n" {
		t.Fatalf("unexpected done view %q", out)
	}
	if out := h.run("ls", "--view", "todo"); out != "1 - A ✗ - []\n" {
		t.Fatalf("unexpected todo view %q", out)
	}
	if out := h.run("ls"); !strings.HasPrefix(out, "Views ✗\n") {
		t.Fatalf("expected root first in full listing, got %q", out)
	}
	if _, err := h.tryRun("ls", "--view", "weird"); err == nil {
		t.Fatal("expected unknown view error")
	}
}

// TestRunMembers verifies behavior for the covered scenario.
func TestRunMembers(t *testing.T) {
	h := newCLIHarness(t)
	h.run("init", "Crew")
	h.run("add", "root", "Plan")
	h.run("add", "1", "Scope")
	h.run("member", "add", "ana")
	h.run("member", "add", "bo")

	if out := h.run("member", "assign", "1.1", "ana"); out != "1.1 members: ana\n" {
		t.Fatalf("unexpected assign output %q", out)
	}
	h.run("member", "assign", "1.1", "bo")
	if out := h.run("member", "ls"); out != "ana\t1.1\nbo\t1.1\n" {
		t.Fatalf("unexpected member ls output %q", out)
	}
	if tree := h.run("tree"); !strings.Contains(tree, "1 - Plan ✗ - [ana bo]") {
		t.Fatalf("expected trunk to show subtree members, got %q", tree)
	}
	if _, err := h.tryRun("member", "assign", "1", "ana"); !errors.Is(err, domain.ErrTrunkCannotAddMember) {
		t.Fatalf("expected ErrTrunkCannotAddMember, got %v", err)
	}
	if _, err := h.tryRun("rm", "1.1"); !errors.Is(err, domain.ErrCannotRemoveAssignedTask) {
		t.Fatalf("expected ErrCannotRemoveAssignedTask, got %v", err)
	}

	h.run("member", "unassign", "1.1", "bo")
	h.run("member", "rm", "ana")
	if out := h.run("rm", "1.1"); out != "removed 1.1 Scope\n" {
		t.Fatalf("unexpected rm output %q", out)
	}
	if out := h.run("member", "ls"); out != "bo\t\n" {
		t.Fatalf("unexpected member ls after cleanup %q", out)
	}
}

// TestRunExpandOutline verifies behavior for the covered scenario.
func TestRunExpandOutline(t *testing.T) {
	h := newCLIHarness(t)
	h.run("init", "Outline")
	h.run("add", "root", "Existing")

	path := filepath.Join(h.dir, "outline.yaml")
	content := `
tasks:
  - name: Design
    tasks:
      - Sketch
      - name: Review
  - Ship
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	out := h.run("expand", "--file", path)
	want := "added 2 Design\nadded 2.1 Sketch\nadded 2.2 Review\nadded 3 Ship\n"
	if out != want {
		t.Fatalf("unexpected expand output\nwant %q\ngot  %q", want, out)
	}

	bad := filepath.Join(h.dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("parent: \"9\"\ntasks: [X]\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := h.tryRun("expand", "--file", bad); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if out := h.run("ls", "--view", "leaf"); strings.Count(out, "\n") != 4 {
		t.Fatalf("expected 4 leaves after expand, got %q", out)
	}
}

// TestRunReportAndHistory verifies behavior for the covered scenario.
func TestRunReportAndHistory(t *testing.T) {
	h := newCLIHarness(t)
	h.run("init", "Report")
	h.run("add", "root", "Only")
	h.run("cost", "1", "1.5")

	report := h.run("report")
	if !strings.HasPrefix(report, "# Report\n") || !strings.Contains(report, "## Done (1)") {
		t.Fatalf("unexpected report %q", report)
	}
	if pretty := h.run("report", "--pretty"); !strings.Contains(pretty, "Report") {
		t.Fatalf("unexpected pretty report %q", pretty)
	}

	history := h.run("history")
	lines := strings.Split(strings.TrimSpace(history), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 history lines, got %q", history)
	}
	if !strings.Contains(lines[0], "set_actual_cost") || !strings.Contains(lines[0], "amount=1.5") {
		t.Fatalf("unexpected newest history line %q", lines[0])
	}
	if !strings.Contains(lines[2], "create") {
		t.Fatalf("unexpected oldest history line %q", lines[2])
	}
	if limited := h.run("history", "--limit", "1"); strings.Count(limited, "\n") != 1 {
		t.Fatalf("expected one history line, got %q", limited)
	}
}

// TestRunProjectSelection verifies behavior for the covered scenario.
func TestRunProjectSelection(t *testing.T) {
	h := newCLIHarness(t)
	h.run("init", "Alpha")
	h.run("init", "Beta")

	if _, err := h.tryRun("add", "root", "X"); !errors.Is(err, app.ErrNoProject) {
		t.Fatalf("expected ErrNoProject with two projects, got %v", err)
	}
	h.run("--project", "beta", "add", "root", "X")
	t.Setenv("APLAN_PROJECT", "Alpha")
	if out := h.run("show", "root"); !strings.Contains(out, "children: 0") {
		t.Fatalf("expected Alpha untouched, got %q", out)
	}
	if out := h.run("-p", "beta", "show", "root"); !strings.Contains(out, "children: 1") {
		t.Fatalf("expected Beta with one child, got %q", out)
	}

	if out := h.run("projects"); strings.Count(out, "\n") != 2 || !strings.Contains(out, "Alpha") {
		t.Fatalf("unexpected projects output %q", out)
	}
	h.run("projects", "rm", "alpha")
	if out := h.run("projects"); strings.Contains(out, "Alpha") {
		t.Fatalf("expected Alpha deleted, got %q", out)
	}
}

// TestRunExportImportRoundTrip verifies behavior for the covered scenario.
func TestRunExportImportRoundTrip(t *testing.T) {
	src := newCLIHarness(t)
	src.run("init", "Carry")
	src.run("add", "root", "Plan")
	src.run("value", "1", "5")
	outPath := filepath.Join(src.dir, "out", "snapshot.json")
	src.run("export", "--out", outPath)

	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if snap.Version != app.SnapshotVersion || len(snap.Projects) != 1 {
		t.Fatalf("unexpected snapshot %#v", snap)
	}

	dst := newCLIHarness(t)
	dst.useFileBackend()
	if out := dst.run("import", "--in", outPath); out != "imported 1 projects\n" {
		t.Fatalf("unexpected import output %q", out)
	}
	if out := dst.run("show", "1"); !strings.Contains(out, "planned_value: 5") {
		t.Fatalf("unexpected imported task %q", out)
	}
	if _, err := dst.tryRun("import"); err == nil || !strings.Contains(err.Error(), "--in is required") {
		t.Fatalf("expected --in error, got %v", err)
	}
}

// TestRunFileBackendFromConfig verifies behavior for the covered scenario.
func TestRunFileBackendFromConfig(t *testing.T) {
	h := newCLIHarness(t)
	snapshotDir := h.useFileBackend()

	h.run("init", "Filed")
	entries, err := os.ReadDir(snapshotDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".json") {
		t.Fatalf("expected one project document, got %v", entries)
	}
	if _, err := os.Stat(h.dbPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no sqlite database for the file backend, stat error %v", err)
	}
}

// TestRunDotCopyAndOut verifies behavior for the covered scenario.
func TestRunDotCopyAndOut(t *testing.T) {
	h := newCLIHarness(t)
	h.run("init", "Graph")
	h.run("add", "root", "Edge")

	var copied string
	prev := clipboardWriter
	clipboardWriter = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { clipboardWriter = prev })

	outPath := filepath.Join(h.dir, "graph.dot")
	if out := h.run("dot", "--copy", "--out", outPath); out != "" {
		t.Fatalf("expected no stdout with --out, got %q", out)
	}
	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(content) != copied || !strings.Contains(copied, `"Graph ✗" -> "1 - Edge ✗ - []"`) {
		t.Fatalf("unexpected dot file %q / clipboard %q", content, copied)
	}
}

// TestRunInitWritesConfig verifies behavior for the covered scenario.
func TestRunInitWritesConfig(t *testing.T) {
	h := newCLIHarness(t)
	h.run("init", "--write-config", "Configured")
	cfg, err := config.Load(h.cfgPath, config.Default("/unused.db", "/unused"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != h.dbPath {
		t.Fatalf("expected written db path %q, got %q", h.dbPath, cfg.Database.Path)
	}
}

// TestRunPathsCommand verifies behavior for the covered scenario.
func TestRunPathsCommand(t *testing.T) {
	var out strings.Builder
	err := run(context.Background(), []string{"--app", "aplanx", "--dev", "paths"}, &out, io.Discard)
	if err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "app: aplanx") {
		t.Fatalf("expected app name in paths output, got %q", output)
	}
	if !strings.Contains(output, "dev_mode: true") || !strings.Contains(output, "aplanx-dev") {
		t.Fatalf("expected dev mode in paths output, got %q", output)
	}
}

// TestRunRejectsInvalidLoggingLevelFromConfig verifies behavior for the covered scenario.
func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	h := newCLIHarness(t)
	if err := os.WriteFile(h.cfgPath, []byte("[logging]\nlevel = \"chatty\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := h.tryRun("projects"); err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected logging level error, got %v", err)
	}
}

// TestParseBoolEnv verifies behavior for the covered scenario.
func TestParseBoolEnv(t *testing.T) {
	t.Setenv("APLAN_BOOL_TEST", "true")
	if v, ok := parseBoolEnv("APLAN_BOOL_TEST"); !ok || !v {
		t.Fatalf("expected true,true got %t,%t", v, ok)
	}
	t.Setenv("APLAN_BOOL_TEST", "nope")
	if _, ok := parseBoolEnv("APLAN_BOOL_TEST"); ok {
		t.Fatal("expected invalid bool to be ignored")
	}
}

// TestParseOutlineForms verifies behavior for the covered scenario.
func TestParseOutlineForms(t *testing.T) {
	tasks, err := domain.NewTasks("P")
	if err != nil {
		t.Fatalf("NewTasks() error = %v", err)
	}
	doc, err := parseOutline([]byte("- A\n- name: B\n  tasks: [C]\n"))
	if err != nil {
		t.Fatalf("parseOutline() error = %v", err)
	}
	items, err := doc.items(tasks)
	if err != nil {
		t.Fatalf("items() error = %v", err)
	}
	want := []struct{ parent, name string }{{"", "A"}, {"", "B"}, {"2", "C"}}
	if len(items) != len(want) {
		t.Fatalf("unexpected items %#v", items)
	}
	for i, w := range want {
		if items[i].Parent.String() != w.parent || items[i].Name != w.name {
			t.Fatalf("item %d = %s/%s, want %s/%s", i, items[i].Parent, items[i].Name, w.parent, w.name)
		}
	}
	if _, err := parseOutline([]byte("tasks: []\n")); err == nil {
		t.Fatal("expected error for empty outline")
	}
	if _, err := parseOutline([]byte(":\n  - [")); err == nil {
		t.Fatal("expected yaml decode error")
	}
}

// TestWorkspaceRootFromUsesNearestMarker verifies behavior for the covered scenario.
func TestWorkspaceRootFromUsesNearestMarker(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if got := workspaceRootFrom(nested); got != root {
		t.Fatalf("workspaceRootFrom() = %q, want %q", got, root)
	}
}

// TestRuntimeLoggerCanMuteConsoleSink verifies behavior for the covered scenario.
func TestRuntimeLoggerCanMuteConsoleSink(t *testing.T) {
	var console bytes.Buffer
	cfg := config.Default("/tmp/aplan.db", "/tmp/projects").Logging

	logger, err := newRuntimeLogger(&console, platform.Paths{App: "aplan"}, false, cfg, func() time.Time {
		return time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}

	logger.Info("before")
	logger.SetConsoleEnabled(false)
	logger.Info("during")
	logger.SetConsoleEnabled(true)
	logger.Info("after")

	out := console.String()
	if !strings.Contains(out, "before") || !strings.Contains(out, "after") || strings.Contains(out, "during") {
		t.Fatalf("unexpected console output %q", out)
	}
	if logger.DevLogPath() != "" {
		t.Fatalf("expected no dev log outside dev mode, got %q", logger.DevLogPath())
	}

	logger.SetConsoleEnabled(false)
	logger.defaultSink().Info("package level")
	if strings.Contains(console.String(), "package level") {
		t.Fatalf("expected muted default sink, got %q", console.String())
	}
}

// TestRunQuietSilencesConsole verifies behavior for the covered scenario.
func TestRunQuietSilencesConsole(t *testing.T) {
	h := newCLIHarness(t)
	if err := os.WriteFile(h.cfgPath, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	base := []string{"--db", h.dbPath, "--config", h.cfgPath}

	var loud bytes.Buffer
	if err := run(context.Background(), append(base, "init", "Loud"), io.Discard, &loud); err != nil {
		t.Fatalf("run(init) error = %v", err)
	}
	if !strings.Contains(loud.String(), "command flow start") {
		t.Fatalf("expected debug console output, got %q", loud.String())
	}

	var quiet, out bytes.Buffer
	if err := run(context.Background(), append(base, "--quiet", "-p", "loud", "add", "root", "Hushed"), &out, &quiet); err != nil {
		t.Fatalf("run(--quiet add) error = %v", err)
	}
	if quiet.Len() != 0 {
		t.Fatalf("expected silent stderr with --quiet, got %q", quiet.String())
	}
	if out.String() != "added 1 Hushed\n" {
		t.Fatalf("unexpected stdout %q", out.String())
	}
}

// TestRunDevModeWritesLogFile verifies behavior for the covered scenario.
func TestRunDevModeWritesLogFile(t *testing.T) {
	h := newCLIHarness(t)
	logDir := filepath.Join(h.dir, "logs")
	cfg := "[logging]\nlevel = \"debug\"\n\n[logging.dev_file]\nenabled = true\ndir = \"" + filepath.ToSlash(logDir) + "\"\n"
	if err := os.WriteFile(h.cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	h.run("--dev", "init", "Logged")

	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one dev log file, got %d", len(entries))
	}
	content, err := os.ReadFile(filepath.Join(logDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "command flow complete") {
		t.Fatalf("expected command flow in dev log, got %q", content)
	}
}

// TestRunBackendFlagOverridesConfig verifies behavior for the covered scenario.
func TestRunBackendFlagOverridesConfig(t *testing.T) {
	h := newCLIHarness(t)
	snapshotDir := h.useFileBackend()

	h.run("--backend", "sqlite", "init", "Flagged")
	if _, err := os.Stat(h.dbPath); err != nil {
		t.Fatalf("expected sqlite database, stat error %v", err)
	}
	if _, err := os.Stat(snapshotDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no snapshot dir, stat error %v", err)
	}
	if _, err := h.tryRun("--backend", "postgres", "projects"); err == nil || !strings.Contains(err.Error(), "storage backend") {
		t.Fatalf("expected storage backend error, got %v", err)
	}
}

// TestDevLogFilePathDefaultsToAppLogDir verifies behavior for the covered scenario.
func TestDevLogFilePathDefaultsToAppLogDir(t *testing.T) {
	paths := platform.Paths{App: "aplan", LogDir: filepath.Join(t.TempDir(), "log")}
	day := time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)

	got, err := devLogFilePath("", paths, day)
	if err != nil {
		t.Fatalf("devLogFilePath() error = %v", err)
	}
	if want := filepath.Join(paths.LogDir, "aplan-20260223.log"); got != want {
		t.Fatalf("devLogFilePath() = %q, want %q", got, want)
	}

	abs := t.TempDir()
	got, err = devLogFilePath(abs, paths, day)
	if err != nil {
		t.Fatalf("devLogFilePath(abs) error = %v", err)
	}
	if filepath.Dir(got) != abs {
		t.Fatalf("expected absolute dir honored, got %q", got)
	}
}
