package helpers

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	// SuccessColor for successful operations
	SuccessColor = color.New(color.FgGreen, color.Bold)

	// ErrorColor for error messages
	ErrorColor = color.New(color.FgRed, color.Bold)

	// WarningColor for warning messages
	WarningColor = color.New(color.FgYellow, color.Bold)

	// InfoColor for informational messages
	InfoColor = color.New(color.FgCyan)

	// TitleColor for titles and headers
	TitleColor = color.New(color.FgMagenta, color.Bold)

	// DebugColor for verbose diagnostics
	DebugColor = color.New(color.FgHiBlack)
)

const timestampLayout = "2006-01-02 15:04:05"

var (
	mu      sync.Mutex
	output  io.Writer = color.Output
	verbose bool
	now     = time.Now
)

// SetOutput redirects all messages; it returns the previous writer
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := output
	output = w
	return prev
}

// SetVerbose enables PrintDebug output
func SetVerbose(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = enabled
}

func printLine(c *color.Color, level, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	c.Fprintf(output, "%s - %s - %s\n", now().Format(timestampLayout), level, fmt.Sprintf(format, args...))
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	printLine(SuccessColor, "INFO", format, args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	printLine(ErrorColor, "ERROR", format, args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	printLine(WarningColor, "WARNING", format, args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	printLine(InfoColor, "INFO", format, args...)
}

// PrintDebug prints a message only in verbose mode
func PrintDebug(format string, args ...interface{}) {
	mu.Lock()
	enabled := verbose
	mu.Unlock()
	if enabled {
		printLine(DebugColor, "DEBUG", format, args...)
	}
}

// PrintTitle prints a title
func PrintTitle(format string, args ...interface{}) {
	printLine(TitleColor, "INFO", format, args...)
}

// PrintProgress prints a progress message
func PrintProgress(current, total int, message string) {
	printLine(InfoColor, "INFO", "[%d/%d] %s", current, total, message)
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	mu.Lock()
	defer mu.Unlock()
	line := "-"
	if IsTerminal() {
		line = "─"
	}
	fmt.Fprintln(output, strings.Repeat(line, 80))
}

// IsTerminal checks if output is going to a terminal
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
