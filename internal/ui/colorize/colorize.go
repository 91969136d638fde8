// Package colorize provides ANSI color formatting for CLI trace and stats output.
package colorize

import (
	"fmt"
	"os"
)

// IsDisabled returns true if colors are disabled via environment.
func IsDisabled() bool {
	return os.Getenv("ZISK_NO_COLOR") != "" || os.Getenv("NO_COLOR") != ""
}

func wrap(s, code string) string {
	if IsDisabled() {
		return s
	}
	return fmt.Sprintf("\033[%sm%s\033[0m", code, s)
}

// Address formats a program counter or memory address in yellow.
func Address(addr uint64) string {
	return wrap(fmt.Sprintf("%08X", addr), "38;2;255;200;0")
}

// Opcode formats an opcode mnemonic in cyan.
func Opcode(name string) string {
	return wrap(name, "38;2;135;206;235")
}

// Detail formats supplementary detail text in light gray.
func Detail(detail string) string {
	return wrap(detail, "38;2;180;180;180")
}

// Border formats table border characters in dark gray.
func Border(s string) string {
	return wrap(s, "38;2;80;80;80")
}

// Header formats section header text in blue.
func Header(s string) string {
	return wrap(s, "38;2;86;156;214")
}

// Good formats a success indicator in green.
func Good(s string) string {
	return wrap(s, "38;2;120;220;120")
}

// Error formats an error message in red.
func Error(s string) string {
	return wrap(s, "38;2;255;80;80")
}

// Stat formats a counter/statistic value in white.
func Stat(s string) string {
	return wrap(s, "38;2;255;255;255")
}
