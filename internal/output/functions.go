package output

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/deltabot/delta/internal/progress"
	"github.com/deltabot/delta/internal/utils"
)

// PrintProgressBar creates a progress bar string
func PrintProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	if total <= 0 {
		total = 1
	}
	if current < 0 {
		current = 0
	}
	if current > total {
		current = total
	}
	percent := float64(current) / float64(total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	if filled < width {
		bar += strings.Repeat(" ", width-filled)
	}
	bar += StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %.1f%% %s ", bar, percent*100, StyleSymbols["bullet"]))
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // Default fallback width
	}
	return width
}

// ConsoleObserver renders tracker snapshots as a single in-place status
// line on stdout.
type ConsoleObserver struct {
	mu       sync.Mutex
	lastLen  int
	finished bool
}

func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{}
}

func (c *ConsoleObserver) OnProgress(s progress.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return
	}
	name := s.FileName
	if name == "" {
		name = "download"
	}
	var line string
	if s.Total > 0 {
		line = fmt.Sprintf("%s %s %s/%s %s ETA %s",
			FInfo(name),
			PrintProgressBar(s.Completed, s.Total, 30),
			utils.FormatBytes(uint64(s.Completed)),
			utils.FormatBytes(uint64(s.Total)),
			FDetail(utils.FormatSpeed(s.Completed, s.Elapsed)),
			FPending(utils.FormatDuration(s.ETA)))
	} else {
		line = fmt.Sprintf("%s %s %s", FInfo(name), FStream(s.Status), utils.FormatBytes(uint64(s.Completed)))
	}
	if width := getTerminalWidth(); len(line) > width {
		line = line[:width]
	}
	pad := ""
	if c.lastLen > len(line) {
		pad = strings.Repeat(" ", c.lastLen-len(line))
	}
	fmt.Printf("\r%s%s", line, pad)
	c.lastLen = len(line)

	if !s.Terminal {
		return
	}
	if s.Status == "completed" {
		fmt.Printf("\n%s %s\n", FSuccess(StyleSymbols["pass"]), FSuccess(fmt.Sprintf("Completed %s (%s)", name, utils.FormatBytes(uint64(s.Completed)))))
	} else {
		fmt.Printf("\n%s %s\n", FError(StyleSymbols["fail"]), FError(fmt.Sprintf("Failed %s: %s", name, s.Status)))
	}
	c.finished = true
}
