package ygggo_formsql

import "strings"

// Shorten keeps the first two lines of a message, which for driver errors is the
// error class and its immediate cause. Messages of two lines or fewer are returned
// unchanged. The full text belongs in the server log.
func Shorten(message string) string {
	lines := strings.SplitN(message, "\n", 3)
	if len(lines) < 3 {
		return message
	}
	return lines[0] + "\n" + lines[1]
}
