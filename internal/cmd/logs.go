package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/miseq/internal/config"
	"github.com/Iron-Ham/miseq/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the debug log",
	Long: `View and filter the miseq debug log.

Logging is off by default; enable it with logging.enabled in the config file
or MISEQ_LOGGING_ENABLED=true.

Examples:
  # Show the last 50 entries
  miseq logs

  # Follow the log while miseq runs in another terminal
  miseq logs -f

  # Only warnings and errors from the last hour
  miseq logs --level warn --since 1h

  # Entries mentioning a task
  miseq logs --grep "frontend:test"`,
	RunE: runLogs,
}

var (
	logsTail    int
	logsFollow  bool
	logsLevel   string
	logsSince   string
	logsGrep    string
	logsNoColor bool
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().BoolVar(&logsNoColor, "no-color", false, "disable colored output")
}

// logEntry represents a parsed JSON log line
type logEntry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Task      string         `json:"task,omitempty"`
	Extra     map[string]any `json:"-"` // Captures additional fields
}

// UnmarshalJSON implements custom unmarshaling to capture extra fields
func (e *logEntry) UnmarshalJSON(data []byte) error {
	// First, unmarshal known fields using a type alias to avoid recursion
	type Alias logEntry
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	// Then unmarshal all fields to capture extras
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, known := range []string{"time", "level", "msg", "component", "session_id", "task"} {
		delete(all, known)
	}
	if len(all) > 0 {
		e.Extra = all
	}
	return nil
}

// logFilter selects which entries are shown.
type logFilter struct {
	minLevel int // -1 shows every level
	since    time.Time
	grep     *regexp.Regexp
}

// levelPriority returns the priority of a log level for filtering
func levelPriority(level string) int {
	return slices.Index(logging.ValidLevels(), strings.ToUpper(level))
}

// passes checks if a log entry passes all filter criteria
func (f logFilter) passes(entry *logEntry) bool {
	if f.minLevel >= 0 && levelPriority(entry.Level) < f.minLevel {
		return false
	}
	if !f.since.IsZero() && entry.Time.Before(f.since) {
		return false
	}
	if f.grep != nil {
		// Search the message and every attribute
		parts := []string{entry.Msg, entry.Component, entry.SessionID, entry.Task}
		for _, v := range entry.Extra {
			parts = append(parts, fmt.Sprint(v))
		}
		if !f.grep.MatchString(strings.Join(parts, " ")) {
			return false
		}
	}
	return true
}

// logFormatter renders entries for the terminal.
type logFormatter struct {
	out *termenv.Output
}

func newLogFormatter(w io.Writer, color bool) logFormatter {
	profile := termenv.Ascii
	if color {
		profile = termenv.ANSI
	}
	return logFormatter{out: termenv.NewOutput(w, termenv.WithProfile(profile))}
}

func (f logFormatter) levelColor(level string) termenv.Color {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return f.out.Color("8")
	case logging.LevelWarn:
		return f.out.Color("3")
	case logging.LevelError:
		return f.out.Color("1")
	default:
		return f.out.Color("4")
	}
}

func (f logFormatter) field(key string, value any) string {
	return f.out.String(key+"=").Foreground(f.out.Color("6")).String() + fmt.Sprint(value)
}

// format formats a log entry for terminal output
func (f logFormatter) format(entry *logEntry) string {
	var sb strings.Builder

	sb.WriteString(f.out.String("[" + entry.Time.Format("15:04:05.000") + "]").Foreground(f.out.Color("8")).String())
	sb.WriteString(" ")
	sb.WriteString(f.out.String("[" + strings.ToUpper(entry.Level) + "]").Foreground(f.levelColor(entry.Level)).String())
	sb.WriteString(" ")
	sb.WriteString(entry.Msg)

	if entry.Component != "" {
		sb.WriteString(" " + f.field("component", entry.Component))
	}
	if entry.SessionID != "" {
		sb.WriteString(" " + f.field("session_id", entry.SessionID))
	}
	if entry.Task != "" {
		sb.WriteString(" " + f.field("task", entry.Task))
	}

	// Extra fields in a stable order
	keys := make([]string, 0, len(entry.Extra))
	for k := range entry.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		sb.WriteString(" " + f.field(k, entry.Extra[k]))
	}

	return sb.String()
}

// formatLine parses and filters one raw log line. Lines that are not JSON
// are shown as they are.
func (f logFormatter) formatLine(line string, filter logFilter) (string, bool) {
	var entry logEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line, true
	}
	if !filter.passes(&entry) {
		return "", false
	}
	return f.format(&entry), true
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	logPath := filepath.Join(cfg.Logging.ResolveDir(), logging.FileName)

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintf(out, "No log file at %s\n", logPath)
		if !cfg.Logging.Enabled {
			fmt.Fprintln(out, "Logging is disabled; set logging.enabled to true to record one.")
		}
		return nil
	}

	filter := logFilter{minLevel: -1}
	if logsLevel != "" {
		filter.minLevel = levelPriority(logging.ParseLevel(logsLevel))
	}
	if logsSince != "" {
		duration, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		filter.since = time.Now().Add(-duration)
	}
	if logsGrep != "" {
		filter.grep, err = regexp.Compile(logsGrep)
		if err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	f := newLogFormatter(out, colorEnabled(out, logsNoColor))
	if logsFollow {
		return followLogs(cmd.Context(), out, logPath, f, filter)
	}
	return displayLogs(out, logPath, logsTail, f, filter)
}

// displayLogs reads the log file and displays filtered entries
func displayLogs(w io.Writer, logPath string, tail int, f logFormatter, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var entries []string
	scanner := bufio.NewScanner(file)

	// Increase buffer size for potentially long log lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if s, ok := f.formatLine(line, filter); ok {
			entries = append(entries, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	// Apply tail limit
	if tail > 0 && len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}
	for _, entry := range entries {
		fmt.Fprintln(w, entry)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No matching log entries found.")
	}
	return nil
}

// followLogs implements tail -f behavior for the log file
func followLogs(ctx context.Context, w io.Writer, logPath string, f logFormatter, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprintf(w, "Following %s... (Ctrl+C to stop)\n\n", logPath)

	reader := bufio.NewReader(file)
	var partial string
	for {
		chunk, err := reader.ReadString('\n')
		partial += chunk
		if err == io.EOF {
			// No new data, wait briefly and try again
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("error reading log file: %w", err)
		}

		line := strings.TrimSpace(partial)
		partial = ""
		if line == "" {
			continue
		}
		if s, ok := f.formatLine(line, filter); ok {
			fmt.Fprintln(w, s)
		}
	}
}
