package mise

import (
	"testing"

	"github.com/Iron-Ham/miseq/internal/testutil"
)

// fakeMise is a shell script standing in for the mise binary. It answers
// "tasks ls", "tasks info <name>" from fixture files in its directory and
// implements a few "run" behaviours.
const fakeMise = `#!/bin/sh
here=$(dirname "$0")
case "$1" in
tasks)
  case "$2" in
  ls) cat "$here/ls.json" ;;
  info)
    if [ -f "$here/info-$3.json" ]; then cat "$here/info-$3.json"; else echo "task not found: $3" >&2; exit 1; fi ;;
  esac ;;
run)
  case "$2" in
  ok) echo "hello"; echo "careful" >&2; exit 0 ;;
  fail) echo "boom"; exit 3 ;;
  color) echo "$FORCE_COLOR"; exit 0 ;;
  partial) printf "no newline"; exit 0 ;;
  hang) trap 'exit 143' TERM; echo "started"; while true; do sleep 0.05; done ;;
  stubborn) trap '' TERM; echo "started"; while true; do sleep 0.05; done ;;
  *) echo "unknown task $2" >&2; exit 1 ;;
  esac ;;
esac
`

// newFakeMise writes the fake binary and fixtures into a temp dir and
// returns the binary path and the directory.
func newFakeMise(t *testing.T, fixtures map[string]string) (string, string) {
	t.Helper()
	testutil.SkipIfNoShell(t)
	dir := testutil.SetupProject(t, fixtures)
	return testutil.WriteFakeMise(t, dir, fakeMise), dir
}
