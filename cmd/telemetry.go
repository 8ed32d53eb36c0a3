package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/haloprep/internal/config"
	"github.com/papapumpkin/haloprep/internal/telemetry"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Inspect the telemetry recorded by a run",
	Long: `Prints the JSONL events of the latest run, or of --run <id>.

--halo and --kind narrow the events shown. --summary instead reports which
halos completed, which failed on which survey, and which were started but
never finished; the retry line lists the IDs a rerun still has to prepare.
With --follow (-f), new events are printed as the run appends them.`,
	RunE: runTelemetry,
}

func init() {
	telemetryCmd.Flags().String("run", "", "run ID to inspect (default: most recent)")
	telemetryCmd.Flags().BoolP("follow", "f", false, "keep printing events as they are appended")
	telemetryCmd.Flags().Int64("halo", 0, "only events for this halo ID")
	telemetryCmd.Flags().StringSlice("kind", nil, "only events of these kinds (e.g. task_failed,halo_done)")
	telemetryCmd.Flags().Bool("summary", false, "report completed, failed and unfinished halos")
	telemetryCmd.MarkFlagsMutuallyExclusive("summary", "follow")
	rootCmd.AddCommand(telemetryCmd)
}

func runTelemetry(cmd *cobra.Command, _ []string) error {
	runID, _ := cmd.Flags().GetString("run")
	follow, _ := cmd.Flags().GetBool("follow")
	summary, _ := cmd.Flags().GetBool("summary")

	filter := eventFilter{}
	if f := cmd.Flags().Lookup("halo"); f != nil && f.Changed {
		id, _ := cmd.Flags().GetInt64("halo")
		filter.halo = &id
	}
	if kinds, _ := cmd.Flags().GetStringSlice("kind"); len(kinds) > 0 {
		filter.kinds = make(map[string]bool, len(kinds))
		for _, k := range kinds {
			filter.kinds[k] = true
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path, err := resolveTelemetryPath(cfg.TelemetryDir, runID)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	if summary {
		events, malformed, err := decodeEvents(f)
		if err != nil {
			return fmt.Errorf("telemetry: read %s: %w", path, err)
		}
		rep := summarize(filter.apply(events))
		rep.Malformed = malformed
		printReport(out, rep)
		return nil
	}

	tail := &eventTail{r: bufio.NewReader(f), filter: filter}
	if err := tail.printNew(out); err != nil {
		return fmt.Errorf("telemetry: read %s: %w", path, err)
	}
	if !follow {
		tail.flush(out)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return followFile(ctx, out, tail, path)
}

// eventFilter selects events by halo and kind. The zero value matches all.
type eventFilter struct {
	halo  *int64
	kinds map[string]bool
}

func (f eventFilter) match(evt telemetry.Event) bool {
	if f.halo != nil && (evt.HaloID == nil || *evt.HaloID != *f.halo) {
		return false
	}
	if f.kinds != nil && !f.kinds[evt.Kind] {
		return false
	}
	return true
}

func (f eventFilter) apply(events []telemetry.Event) []telemetry.Event {
	var kept []telemetry.Event
	for _, e := range events {
		if f.match(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

// decodeEvents reads every JSONL event from r and counts undecodable lines.
func decodeEvents(r io.Reader) ([]telemetry.Event, int, error) {
	var (
		events    []telemetry.Event
		malformed int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var evt telemetry.Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			malformed++
			continue
		}
		events = append(events, evt)
	}
	return events, malformed, sc.Err()
}

// eventTail prints complete lines as they become available from r,
// holding back a trailing partial line until its newline arrives.
type eventTail struct {
	r       *bufio.Reader
	partial string
	filter  eventFilter
}

// printNew prints every complete line now available.
func (t *eventTail) printNew(w io.Writer) error {
	for {
		chunk, err := t.r.ReadString('\n')
		if err == io.EOF {
			t.partial += chunk
			return nil
		}
		if err != nil {
			return err
		}
		line := t.partial + chunk
		t.partial = ""
		printEvent(w, line, t.filter)
	}
}

// flush prints a held-back partial line, for a file that will not grow.
func (t *eventTail) flush(w io.Writer) {
	line := t.partial
	t.partial = ""
	printEvent(w, line, t.filter)
}

// followFile prints events appended to path until ctx is done.
func followFile(ctx context.Context, w io.Writer, tail *eventTail, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("telemetry: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("telemetry: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			if err := tail.printNew(w); err != nil {
				return fmt.Errorf("telemetry: read %s: %w", path, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("telemetry: watch %s: %w", path, err)
		}
	}
}

// printEvent decodes one JSONL line and prints it when it passes filter.
// Undecodable lines are always shown, prefixed with "???".
func printEvent(w io.Writer, line string, filter eventFilter) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	var evt telemetry.Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}
	if filter.match(evt) {
		fmt.Fprintln(w, formatEvent(evt))
	}
}

// formatEvent renders "[hh:mm:ss] kind halo=N key=value ...".
func formatEvent(evt telemetry.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", evt.Timestamp.Format(time.TimeOnly), evt.Kind)
	if evt.HaloID != nil {
		fmt.Fprintf(&b, " halo=%d", *evt.HaloID)
	}
	switch data := evt.Data.(type) {
	case nil:
	case map[string]any:
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, data[k])
		}
	default:
		raw, _ := json.Marshal(data)
		b.WriteByte(' ')
		b.Write(raw)
	}
	return b.String()
}

// haloFailure is the first failed survey of a halo.
type haloFailure struct {
	HaloID int64
	Survey string
	Error  string
}

// runReport is the per-halo outcome of one run, in dispatch order.
type runReport struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Completed  []int64
	Failed     []haloFailure
	Unfinished []int64
	Malformed  int
}

// retryIDs lists the halos a rerun still has to prepare: failed, then
// unfinished.
func (r runReport) retryIDs() []int64 {
	ids := make([]int64, 0, len(r.Failed)+len(r.Unfinished))
	for _, f := range r.Failed {
		ids = append(ids, f.HaloID)
	}
	return append(ids, r.Unfinished...)
}

// summarize folds halo_start, halo_done and task_failed events into a
// runReport. A halo is unfinished when it started but neither completed
// nor failed, as after an interrupt.
func summarize(events []telemetry.Event) runReport {
	const (
		started = iota
		done
		failed
	)
	var (
		rep    runReport
		order  []int64
		state  = make(map[int64]int)
		reason = make(map[int64]haloFailure)
	)
	for _, e := range events {
		if rep.RunID == "" {
			rep.RunID = e.RunID
		}
		switch e.Kind {
		case telemetry.KindRunStart:
			rep.Started = e.Timestamp
		case telemetry.KindRunDone:
			rep.Finished = e.Timestamp
		}
		if e.HaloID == nil {
			continue
		}
		switch e.Kind {
		case telemetry.KindHaloStart, telemetry.KindTaskDone, telemetry.KindTaskFailed, telemetry.KindHaloDone:
		default:
			continue
		}
		id := *e.HaloID
		if _, seen := state[id]; !seen {
			order = append(order, id)
			state[id] = started
		}
		switch e.Kind {
		case telemetry.KindHaloDone:
			if state[id] != failed {
				state[id] = done
			}
		case telemetry.KindTaskFailed:
			if state[id] != failed {
				state[id] = failed
				m, _ := e.Data.(map[string]any)
				survey, _ := m["survey"].(string)
				msg, _ := m["error"].(string)
				reason[id] = haloFailure{HaloID: id, Survey: survey, Error: msg}
			}
		}
	}
	for _, id := range order {
		switch state[id] {
		case done:
			rep.Completed = append(rep.Completed, id)
		case failed:
			rep.Failed = append(rep.Failed, reason[id])
		default:
			rep.Unfinished = append(rep.Unfinished, id)
		}
	}
	return rep
}

func printReport(w io.Writer, r runReport) {
	fmt.Fprintf(w, "run %s\n", r.RunID)
	if !r.Started.IsZero() && !r.Finished.IsZero() {
		fmt.Fprintf(w, "  elapsed     %s\n", r.Finished.Sub(r.Started).Round(time.Millisecond))
	} else if !r.Started.IsZero() {
		fmt.Fprintln(w, "  elapsed     (no run_done event)")
	}
	fmt.Fprintf(w, "  completed   %d\n", len(r.Completed))
	fmt.Fprintf(w, "  failed      %d\n", len(r.Failed))
	for _, f := range r.Failed {
		fmt.Fprintf(w, "    halo %-10d %-12s %s\n", f.HaloID, f.Survey, f.Error)
	}
	fmt.Fprintf(w, "  unfinished  %d\n", len(r.Unfinished))
	if r.Malformed > 0 {
		fmt.Fprintf(w, "  skipped     %d malformed line(s)\n", r.Malformed)
	}
	if ids := r.retryIDs(); len(ids) > 0 {
		strs := make([]string, len(ids))
		for i, id := range ids {
			strs[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(w, "  retry       %s\n", strings.Join(strs, ","))
	}
}

// resolveTelemetryPath returns the JSONL file of runID in dir, or the most
// recently modified one when runID is empty.
func resolveTelemetryPath(dir, runID string) (string, error) {
	if runID != "" {
		path := filepath.Join(dir, runID+".jsonl")
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("telemetry: no file for run %q: %w", runID, err)
		}
		return path, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("telemetry: no runs recorded in %s: %w", dir, err)
	}
	var (
		latest   string
		latestAt time.Time
	)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestAt) {
			latest, latestAt = e.Name(), info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("telemetry: no runs recorded in %s", dir)
	}
	return filepath.Join(dir, latest), nil
}
