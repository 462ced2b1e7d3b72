package command

import (
	"regexp"
	"strings"
)

// keywordEnd returns the byte offset in command just past the first
// case-insensitive occurrence of keyword, or -1.
func keywordEnd(command, keyword string) int {
	loc := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(keyword)).FindStringIndex(command)
	if loc == nil {
		return -1
	}
	return loc[1]
}

// parseCallArgs finds `keyword(arg1, "arg2", ...)` in command and returns the
// positional arguments with quotes stripped. Commas inside quotes are kept.
func parseCallArgs(command, keyword string) ([]string, bool) {
	i := keywordEnd(command, keyword)
	if i < 0 {
		return nil, false
	}

	for i < len(command) && (command[i] == ' ' || command[i] == '\t') {
		i++
	}
	if i >= len(command) || command[i] != '(' {
		return nil, false
	}
	i++

	var (
		args    []string
		current strings.Builder
		quote   byte
		sawAny  bool
	)
	for ; i < len(command); i++ {
		c := command[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
				continue
			}
			current.WriteByte(c)
		case c == '"' || (c == '\'' && strings.TrimSpace(current.String()) == ""):
			quote = c
			sawAny = true
		case c == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
			sawAny = true
		case c == ')':
			last := strings.TrimSpace(current.String())
			if sawAny || last != "" {
				args = append(args, last)
			}
			return args, true
		default:
			current.WriteByte(c)
			if c != ' ' {
				sawAny = true
			}
		}
	}

	// Unterminated call syntax is not a call.
	return nil, false
}

var labelValueTmpl = `(?i)\b%s\s*[:=]\s*(?:"([^"]*)"|([^,\n)]+))`

// parseLabeledArgs extracts `label: value` pairs in label order, stopping at the
// first label that is missing.
func parseLabeledArgs(command string, labels []*regexp.Regexp) []string {
	var args []string
	for _, re := range labels {
		m := re.FindStringSubmatch(command)
		if m == nil {
			break
		}
		value := m[1]
		if value == "" {
			value = m[2]
		}
		args = append(args, strings.TrimSpace(value))
	}
	return args
}

// parseTrailingClause returns the comma-separated clause after keyword on the same line,
// as in `open_page: youtube` or `play_song Imagine, John Lennon`.
func parseTrailingClause(command, keyword string) []string {
	end := keywordEnd(command, keyword)
	if end < 0 {
		return nil
	}
	rest := command[end:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	rest = strings.Trim(rest, " \t:-=()\"'.")
	if rest == "" {
		return nil
	}

	parts := strings.Split(rest, ",")
	args := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p != "" {
			args = append(args, p)
		}
	}
	return args
}
