package syntax

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseProperties reads key=value lines.
//
// Lines starting with '#' or '!' are comments. The key ends at the first
// unescaped '='; lines without one are skipped. A trailing backslash joins
// the next line, with its leading whitespace dropped. \n, \t, \r, \\, \= and
// \# are unescaped in both keys and values. Later keys override earlier ones.
func ParseProperties(r io.Reader) (map[string]string, error) {
	props := make(map[string]string)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		logical strings.Builder
		lineNo  int
		startNo int
	)

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if logical.Len() == 0 {
			line = strings.TrimLeft(line, " \t\f")
			if line == "" || line[0] == '#' || line[0] == '!' {
				continue
			}
			startNo = lineNo
		} else {
			line = strings.TrimLeft(line, " \t\f")
		}

		if continues(line) {
			logical.WriteString(line[:len(line)-1])
			continue
		}
		logical.WriteString(line)

		if err := addEntry(props, logical.String(), startNo); err != nil {
			return nil, err
		}
		logical.Reset()
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if logical.Len() > 0 {
		if err := addEntry(props, logical.String(), startNo); err != nil {
			return nil, err
		}
	}
	return props, nil
}

func addEntry(props map[string]string, entry string, lineNo int) error {
	key, value, ok := splitEntry(entry)
	if !ok {
		logger.Debugf("Skipping line %d without '='", lineNo)
		return nil
	}
	if key == "" {
		return fmt.Errorf("line %d: empty key", lineNo)
	}
	props[key] = value
	return nil
}

// continues reports whether line ends in an odd number of backslashes.
func continues(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

func splitEntry(entry string) (key, value string, ok bool) {
	for i := 0; i < len(entry); i++ {
		switch entry[i] {
		case '\\':
			i++
		case '=':
			key = strings.TrimSpace(unescape(entry[:i]))
			value = unescape(strings.TrimLeft(entry[i+1:], " \t\f"))
			return key, value, true
		}
	}
	return "", "", false
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
