package cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/papapumpkin/haloprep/internal/catalog"
	"github.com/papapumpkin/haloprep/internal/manifest"
	"github.com/papapumpkin/haloprep/internal/plan"
	"github.com/papapumpkin/haloprep/internal/telemetry"
)

func TestSubcommands_Registered(t *testing.T) {
	t.Parallel()

	want := map[string]bool{"run": false, "select": false, "clean": false, "validate": false, "telemetry": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %q subcommand to be registered on rootCmd", name)
		}
	}
}

func TestRunCmd_Flags(t *testing.T) {
	t.Parallel()

	for _, flag := range []string{"workers", "exec", "threshold", "watch", "no-telemetry"} {
		if runCmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected flag %q to be registered on run command", flag)
		}
	}
	for _, flag := range []string{"ids", "from-manifest", "subdir", "pattern", "dry-run"} {
		if cleanCmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected flag %q to be registered on clean command", flag)
		}
	}
	for _, flag := range []string{"run", "follow", "halo", "kind", "summary"} {
		if telemetryCmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected flag %q to be registered on telemetry command", flag)
		}
	}
}

func TestPrintSelection(t *testing.T) {
	t.Parallel()

	halos := []catalog.Halo{
		{ID: 11518, Pos: catalog.Vec3{0.5, 0.25, 0.125}, Radius: 0.002, Mstar: 4e-3},
		{ID: 12763, Pos: catalog.Vec3{0.1, 0.2, 0.3}, Radius: 0.001, Mstar: 2e-3},
	}

	var buf bytes.Buffer
	printSelection(&buf, halos, true)
	if got := buf.String(); got != "11518\n12763\n" {
		t.Errorf("ids output = %q", got)
	}

	buf.Reset()
	printSelection(&buf, halos, false)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got:\n%s", buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[1], "4.00000000e+08") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}
}

func TestCleanIDs_Precedence(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	p := &plan.Plan{Run: plan.Run{RascasDir: base, Timestep: 183}, Clean: plan.Clean{HaloIDs: []int64{1, 2}}}
	if err := manifest.Write(manifest.Path(base, 183), []int64{7, 8, 9}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		flagIDs      []int64
		fromManifest bool
		want         []int64
	}{
		{name: "plan", want: []int64{1, 2}},
		{name: "manifest over plan", fromManifest: true, want: []int64{7, 8, 9}},
		{name: "flag over manifest", flagIDs: []int64{42}, fromManifest: true, want: []int64{42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := cleanIDs(tt.flagIDs, tt.fromManifest, p)
			if err != nil {
				t.Fatalf("cleanIDs: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := cleanIDs(nil, false, &plan.Plan{}); err == nil {
		t.Error("expected error when no source lists halo IDs")
	}
}

func TestResolveTelemetryPath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	if _, err := resolveTelemetryPath(dir, ""); err == nil {
		t.Error("expected error for empty directory")
	}

	older := filepath.Join(dir, "a.jsonl")
	newer := filepath.Join(dir, "b.jsonl")
	for _, p := range []string{older, newer} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	got, err := resolveTelemetryPath(dir, "")
	if err != nil || got != newer {
		t.Errorf("latest = %q, %v; want %q", got, err, newer)
	}
	got, err = resolveTelemetryPath(dir, "a")
	if err != nil || got != older {
		t.Errorf("by run = %q, %v; want %q", got, err, older)
	}
	if _, err := resolveTelemetryPath(dir, "missing"); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestPrintEvent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printEvent(&buf, `{"ts":"2025-01-01T10:00:00Z","kind":"task_done","run":"r","halo":11518,"data":{"survey":"1500A_rf"}}`, eventFilter{})
	got := buf.String()
	for _, want := range []string{"[10:00:00]", "task_done", "halo=11518", "survey=1500A_rf"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}

	buf.Reset()
	printEvent(&buf, `{"ts":"2025-01-01T10:00:00Z","kind":"halo_done","halo":0}`, eventFilter{})
	if !strings.Contains(buf.String(), "halo=0") {
		t.Errorf("halo 0 dropped: %q", buf.String())
	}

	buf.Reset()
	printEvent(&buf, `{"ts":"2025-01-01T10:00:00Z","kind":"run_start"}`, eventFilter{})
	if strings.Contains(buf.String(), "halo=") {
		t.Errorf("run-level event printed a halo: %q", buf.String())
	}

	buf.Reset()
	printEvent(&buf, "not json", eventFilter{kinds: map[string]bool{"halo_done": true}})
	if !strings.HasPrefix(buf.String(), "???") {
		t.Errorf("malformed line output = %q", buf.String())
	}
}

func TestEventFilter(t *testing.T) {
	t.Parallel()

	zero := int64(0)
	events := []telemetry.Event{
		{Kind: telemetry.KindRunStart},
		{Kind: telemetry.KindHaloStart, HaloID: telemetry.Halo(0)},
		{Kind: telemetry.KindTaskFailed, HaloID: telemetry.Halo(0)},
		{Kind: telemetry.KindTaskFailed, HaloID: telemetry.Halo(7)},
	}

	tests := []struct {
		name   string
		filter eventFilter
		want   int
	}{
		{"zero value keeps all", eventFilter{}, 4},
		{"halo 0", eventFilter{halo: &zero}, 2},
		{"kind", eventFilter{kinds: map[string]bool{telemetry.KindTaskFailed: true}}, 2},
		{"halo and kind", eventFilter{halo: &zero, kinds: map[string]bool{telemetry.KindTaskFailed: true}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := len(tt.filter.apply(events)); got != tt.want {
				t.Errorf("kept %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	failData := map[string]any{"survey": "2200A_rf", "error": "rascas exploded"}
	events := []telemetry.Event{
		{Timestamp: start, Kind: telemetry.KindRunStart, RunID: "r1"},
		{Kind: telemetry.KindHaloStart, RunID: "r1", HaloID: telemetry.Halo(0)},
		{Kind: telemetry.KindTaskDone, RunID: "r1", HaloID: telemetry.Halo(0)},
		{Kind: telemetry.KindHaloDone, RunID: "r1", HaloID: telemetry.Halo(0)},
		{Kind: telemetry.KindHaloStart, RunID: "r1", HaloID: telemetry.Halo(12763)},
		{Kind: telemetry.KindTaskFailed, RunID: "r1", HaloID: telemetry.Halo(12763), Data: failData},
		{Kind: telemetry.KindHaloStart, RunID: "r1", HaloID: telemetry.Halo(18546)},
		{Timestamp: start.Add(1500 * time.Millisecond), Kind: telemetry.KindRunDone, RunID: "r1"},
	}

	rep := summarize(events)
	if rep.RunID != "r1" {
		t.Errorf("run = %q, want r1", rep.RunID)
	}
	if diff := cmp.Diff([]int64{0}, rep.Completed); diff != "" {
		t.Errorf("completed mismatch (-want +got):\n%s", diff)
	}
	wantFailed := []haloFailure{{HaloID: 12763, Survey: "2200A_rf", Error: "rascas exploded"}}
	if diff := cmp.Diff(wantFailed, rep.Failed); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{18546}, rep.Unfinished); diff != "" {
		t.Errorf("unfinished mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{12763, 18546}, rep.retryIDs()); diff != "" {
		t.Errorf("retry mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	printReport(&buf, rep)
	out := buf.String()
	for _, want := range []string{"run r1", "elapsed     1.5s", "completed   1", "failed      1", "2200A_rf", "unfinished  1", "retry       12763,18546"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestSummarize_FromEmittedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.jsonl")
	em, err := telemetry.NewEmitter(path, "r2")
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	_ = em.Emit(telemetry.Event{Kind: telemetry.KindHaloStart, HaloID: telemetry.Halo(5)})
	_ = em.Emit(telemetry.Event{Kind: telemetry.KindHaloDone, HaloID: telemetry.Halo(5)})
	_ = em.Emit(telemetry.Event{Kind: telemetry.KindCleanRemoved, HaloID: telemetry.Halo(9)})
	if err := em.Close(); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("garbage\n")
	f.Close()

	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	events, malformed, err := decodeEvents(r)
	if err != nil {
		t.Fatalf("decodeEvents: %v", err)
	}
	if malformed != 1 {
		t.Errorf("malformed = %d, want 1", malformed)
	}
	rep := summarize(events)
	if diff := cmp.Diff([]int64{5}, rep.Completed); diff != "" {
		t.Errorf("completed mismatch (-want +got):\n%s", diff)
	}
	if len(rep.Unfinished) != 0 {
		t.Errorf("clean events counted as unfinished halos: %v", rep.Unfinished)
	}
}

func TestEventTail_HoldsPartialLine(t *testing.T) {
	t.Parallel()

	// The buffer grows between reads, as the file does while a run writes.
	var src bytes.Buffer
	tail := &eventTail{r: bufio.NewReader(&src)}
	src.WriteString(`{"ts":"2025-01-01T10:00:00Z","kind":"halo_done","ha`)

	var out bytes.Buffer
	if err := tail.printNew(&out); err != nil {
		t.Fatalf("printNew: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("partial line printed early: %q", out.String())
	}

	src.WriteString("lo\":3}\n")
	if err := tail.printNew(&out); err != nil {
		t.Fatalf("printNew: %v", err)
	}
	if !strings.Contains(out.String(), "halo_done halo=3") {
		t.Errorf("output = %q, want the joined event", out.String())
	}
}

func TestRunThenWatch(t *testing.T) {
	t.Parallel()

	failing := func(context.Context) error { return errors.New("plan validation failed") }
	ok := func(context.Context) error { return nil }

	tests := []struct {
		name      string
		watching  bool
		once      func(context.Context) error
		cancel    bool
		wantWatch bool
		wantErr   bool
	}{
		{"single run ok", false, ok, false, false, false},
		{"single run fails", false, failing, false, false, true},
		{"watch after success", true, ok, false, true, false},
		{"watch after failure", true, failing, false, true, false},
		{"interrupted before watching", true, failing, true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}

			watched := false
			watch := func(context.Context) error {
				watched = true
				return nil
			}
			err := runThenWatch(ctx, tt.watching, tt.once, watch, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if watched != tt.wantWatch {
				t.Errorf("watched = %v, want %v", watched, tt.wantWatch)
			}
		})
	}
}
