package utils

import "strings"

// SplitFieldList splits a comma-separated column list, trimming blanks and
// dropping empty entries. Order is preserved.
func SplitFieldList(list string) []string {
	parts := strings.Split(list, ",")
	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			fields = append(fields, part)
		}
	}
	return fields
}

// ShellQuote wraps s in single quotes for a POSIX shell.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
