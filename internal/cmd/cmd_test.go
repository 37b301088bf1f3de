package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/miseq/internal/catalog"
	"github.com/Iron-Ham/miseq/internal/config"
	"github.com/Iron-Ham/miseq/internal/dispatch"
	"github.com/Iron-Ham/miseq/internal/event"
	"github.com/Iron-Ham/miseq/internal/testutil"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "miseq" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "miseq")
	}

	expectedCmds := []string{"run", "list", "config", "logs"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, name := range expectedCmds {
		if !cmdMap[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}

	for _, flag := range []string{"config", "dir", "steps"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}

func TestConfigSearchPaths(t *testing.T) {
	got := configSearchPaths()
	if len(got) != 3 {
		t.Fatalf("configSearchPaths() = %v", got)
	}
	if got[0] != config.ConfigDir() {
		t.Errorf("first path = %q, want %q", got[0], config.ConfigDir())
	}
	if got[len(got)-1] != "." {
		t.Errorf("last path = %q, want the working directory", got[len(got)-1])
	}
}

func TestConfigFromWorkingDirectory(t *testing.T) {
	dir := testutil.SetupProject(t, map[string]string{
		"config.yaml": "sequence:\n  steps: 7\n",
	})
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	bindFlags()
	t.Cleanup(func() {
		viper.Reset()
		bindFlags()
	})

	initConfig()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sequence.Steps != 7 {
		t.Errorf("Sequence.Steps = %d, want 7 from ./config.yaml", cfg.Sequence.Steps)
	}
}

func TestParseSteps(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		want    []stepAssignment
		wantErr bool
	}{
		{
			name:   "one per step",
			values: []string{"1=build", "2=frontend:test"},
			want: []stepAssignment{
				{Step: 1, Path: catalog.Path{"build"}},
				{Step: 2, Path: catalog.Path{"frontend", "test"}},
			},
		},
		{
			name:   "comma separated paths",
			values: []string{"1=lint, fmt"},
			want: []stepAssignment{
				{Step: 1, Path: catalog.Path{"lint"}},
				{Step: 1, Path: catalog.Path{"fmt"}},
			},
		},
		{
			name:   "duplicates collapse",
			values: []string{"1=build", "1=build"},
			want:   []stepAssignment{{Step: 1, Path: catalog.Path{"build"}}},
		},
		{
			name:   "same path in two steps",
			values: []string{"1=build", "3=build"},
			want: []stepAssignment{
				{Step: 1, Path: catalog.Path{"build"}},
				{Step: 3, Path: catalog.Path{"build"}},
			},
		},
		{name: "missing separator", values: []string{"build"}, wantErr: true},
		{name: "step out of range", values: []string{"4=build"}, wantErr: true},
		{name: "step zero", values: []string{"0=build"}, wantErr: true},
		{name: "not a number", values: []string{"x=build"}, wantErr: true},
		{name: "empty path", values: []string{"1=build,,"}, wantErr: true},
		{name: "nothing", values: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSteps(tt.values, 3)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSteps: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i].Step != tt.want[i].Step || !got[i].Path.Equal(tt.want[i].Path) {
					t.Errorf("[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRenderTree(t *testing.T) {
	items := []dispatch.Item{
		{Path: catalog.Path{"build"}, Name: "build", Kind: catalog.KindGroup, Depth: 1},
		{Path: catalog.Path{"build", "build"}, Name: "build", Kind: catalog.KindTask, Depth: 2, Ref: "build"},
		{Path: catalog.Path{"build", "dev"}, Name: "dev", Kind: catalog.KindTask, Depth: 2, Ref: "build:dev"},
		{Path: catalog.Path{"deploy"}, Name: "deploy", Kind: catalog.KindTask, Depth: 1, Ref: "deploy"},
	}

	want := "build/\n  build\n  dev\ndeploy\n"
	if got := renderTree(items, false); got != want {
		t.Errorf("renderTree =\n%s\nwant\n%s", got, want)
	}

	withNames := renderTree(items, true)
	if !strings.Contains(withNames, "  build  (build)\n") {
		t.Errorf("promoted task should show its mise name:\n%s", withNames)
	}
	if strings.Contains(withNames, "(build:dev)") {
		t.Errorf("name equal to the path should not be repeated:\n%s", withNames)
	}
}

func TestPrinterPlain(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)

	p.taskStarted(event.NewTaskStartedEvent("s1", "build", 1))
	p.output(event.NewOutputAppendedEvent("s1", "build", 1, "stdout", "compiling", 0))
	p.output(event.NewOutputAppendedEvent("s1", "build", 1, "stdout", "\x1b[32mok\x1b[0m", 1))
	p.taskFinished(event.NewTaskFinishedEvent("s1", "build", 1, 0, "succeeded"))
	p.output(event.NewOutputAppendedEvent("s1", "deploy", 0, "stdout", "single", 1))
	p.taskFinished(event.NewTaskFinishedEvent("s1", "test", 2, 3, "failed"))
	p.runFinished(event.NewRunFinishedEvent("s1", "failed", 2, "test", 3, ""))

	want := []string{
		"==> [1 build] started",
		"[1 build] compiling",
		"[1 build] ok",
		"[1 build] succeeded",
		"[deploy] single",
		"[2 test] failed (exit 3)",
		"run failed at step 2: test exited with 3",
	}
	got := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("output =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestLogFilter(t *testing.T) {
	now := time.Now()
	entry := &logEntry{
		Time:      now.Add(-time.Minute),
		Level:     "WARN",
		Msg:       "reload failed",
		Component: "dispatch",
		Extra:     map[string]any{"error": "mise not found"},
	}

	tests := []struct {
		name   string
		filter logFilter
		want   bool
	}{
		{"no filter", logFilter{minLevel: -1}, true},
		{"level below", logFilter{minLevel: levelPriority("info")}, true},
		{"level above", logFilter{minLevel: levelPriority("error")}, false},
		{"since before", logFilter{minLevel: -1, since: now.Add(-time.Hour)}, true},
		{"since after", logFilter{minLevel: -1, since: now}, false},
		{"grep message", logFilter{minLevel: -1, grep: regexp.MustCompile("reload")}, true},
		{"grep extra", logFilter{minLevel: -1, grep: regexp.MustCompile("not found")}, true},
		{"grep component", logFilter{minLevel: -1, grep: regexp.MustCompile("^.*dispatch")}, true},
		{"grep miss", logFilter{minLevel: -1, grep: regexp.MustCompile("deploy")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.passes(entry); got != tt.want {
				t.Errorf("passes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDisplayLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miseq.log")
	lines := []string{
		`{"time":"2026-10-15T12:00:00Z","level":"INFO","msg":"catalog loaded","component":"dispatch","tasks":4}`,
		`not json`,
		`{"time":"2026-10-15T12:00:01Z","level":"DEBUG","msg":"running mise","component":"mise"}`,
		`{"time":"2026-10-15T12:00:02Z","level":"ERROR","msg":"task failed","task":"build:dev","session_id":"abc"}`,
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	f := newLogFormatter(&buf, false)
	if err := displayLogs(&buf, path, 2, f, logFilter{minLevel: levelPriority("info")}); err != nil {
		t.Fatalf("displayLogs: %v", err)
	}

	got := buf.String()
	if strings.Contains(got, "running mise") {
		t.Error("debug entry should be filtered out")
	}
	if strings.Contains(got, "catalog loaded") {
		t.Error("tail should keep only the last two entries")
	}
	for _, want := range []string{"not json", "[ERROR] task failed", "session_id=abc", "task=build:dev"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestParseConfigValue(t *testing.T) {
	config.SetDefaults()

	tests := []struct {
		key, value string
		want       any
		wantErr    bool
	}{
		{"sequence.steps", "5", 5, false},
		{"catalog.watch", "false", false, false},
		{"tui.theme", "mono", "mono", false},
		{"sequence.steps", "many", nil, true},
		{"catalog.watch", "maybe", nil, true},
		{"no.such.key", "1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got, err := parseConfigValue(tt.key, tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseConfigValue: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v (%T), want %v", got, got, tt.want)
			}
		})
	}
}

func TestDefaultConfigFileRoundTrip(t *testing.T) {
	data, err := defaultConfigFile()
	if err != nil {
		t.Fatalf("defaultConfigFile: %v", err)
	}
	if !strings.HasPrefix(string(data), "# miseq configuration") {
		t.Error("missing header comment")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	cfg, err := config.LoadFrom(v)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Sequence.Steps != 3 || cfg.Runner.Binary != "mise" || cfg.TUI.Theme != "default" {
		t.Errorf("unexpected config %+v", cfg)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	for _, section := range []string{"sequence", "runner", "output", "catalog", "editor", "logging", "tui"} {
		if _, ok := raw[section]; !ok {
			t.Errorf("section %q missing", section)
		}
	}
}

// fakeMise stands in for the mise binary: "tasks ls" prints two tasks and
// "run" succeeds for build and fails for test.
const fakeMise = `#!/bin/sh
case "$1" in
tasks) echo '[{"name":"build","source":"mise.toml"},{"name":"test","source":"mise.toml"}]' ;;
run)
  case "$2" in
  build) echo "compiled"; exit 0 ;;
  test) echo "1 failing" >&2; exit 2 ;;
  esac ;;
esac
`

func fakeConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := testutil.SetupProject(t, map[string]string{"mise.toml": "[tasks]\n"})
	bin := testutil.WriteFakeMise(t, dir, fakeMise)
	cfg := config.Default()
	cfg.Runner.Binary = bin
	cfg.Runner.Dir = dir
	return cfg
}

func TestHeadlessRun(t *testing.T) {
	tests := []struct {
		name     string
		steps    []string
		wantCode int
		want     []string
	}{
		{
			name:  "completed",
			steps: []string{"1=build"},
			want:  []string{"[1 build] compiled", "run completed"},
		},
		{
			name:     "failure stops the sequence",
			steps:    []string{"1=test", "2=build"},
			wantCode: 1,
			want:     []string{"[1 test] 1 failing", "[1 test] failed (exit 2)", "run failed at step 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fakeConfig(t)
			assignments, err := parseSteps(tt.steps, cfg.Sequence.Steps)
			if err != nil {
				t.Fatal(err)
			}

			var buf bytes.Buffer
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err = headless(ctx, cfg, assignments, newPrinter(&buf, false), nil)

			if tt.wantCode == 0 && err != nil {
				t.Fatalf("headless: %v\n%s", err, buf.String())
			}
			if tt.wantCode != 0 {
				var exit *ExitError
				if !errors.As(err, &exit) || exit.Code != tt.wantCode {
					t.Fatalf("err = %v, want exit code %d", err, tt.wantCode)
				}
			}
			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			if tt.wantCode != 0 && strings.Contains(out, "[2 build]") {
				t.Errorf("step 2 ran after a failure:\n%s", out)
			}
		})
	}
}

func TestHeadlessRunUnknownTask(t *testing.T) {
	cfg := fakeConfig(t)
	assignments, _ := parseSteps([]string{"1=nope"}, cfg.Sequence.Steps)

	err := headless(context.Background(), cfg, assignments, newPrinter(&bytes.Buffer{}, false), nil)
	if err == nil {
		t.Fatal("expected an error for an unknown task path")
	}
}
