package sink

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// TerminalWidth queries the column count of the terminal on fd via
// TIOCGWINSZ, then falls back to $COLUMNS. It returns 0 when neither is
// available.
func TerminalWidth(fd uintptr) int {
	ws, err := unix.IoctlGetWinsize(int(fd), unix.TIOCGWINSZ)
	if err == nil && ws.Col > 0 {
		return int(ws.Col)
	}
	if v, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && v > 0 {
		return v
	}
	return 0
}
