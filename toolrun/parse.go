package toolrun

import "strings"

// Marker introduces a tool call in model output.
const Marker = "TOOL["

// Parse extracts tool calls from model output in left-to-right order.
// The grammar is TOOL[name](arg1, arg2, ...): the name is an
// identifier, arguments are comma-separated and optionally quoted with
// " or ', and whitespace around tokens is trimmed. Surrounding prose is
// ignored. Malformed calls (empty or invalid name, unbalanced parens,
// unterminated quote) are skipped, not reported.
func Parse(text string) []Call {
	var calls []Call
	for i := 0; i < len(text); {
		j := strings.Index(text[i:], Marker)
		if j < 0 {
			break
		}
		pos := i + j
		call, next, ok := parseCall(text, pos)
		if ok {
			calls = append(calls, call)
			i = next
		} else {
			i = pos + len(Marker)
		}
	}
	return calls
}

// parseCall parses one call starting at the marker position. It returns
// the index just past the closing paren on success.
func parseCall(text string, pos int) (Call, int, bool) {
	i := pos + len(Marker)

	start := i
	for i < len(text) && isIdent(text[i]) {
		i++
	}
	name := text[start:i]
	if name == "" || i >= len(text) || text[i] != ']' {
		return Call{}, 0, false
	}
	i++ // ']'
	if i >= len(text) || text[i] != '(' {
		return Call{}, 0, false
	}
	args, next, ok := parseArgs(text, i+1)
	if !ok {
		return Call{}, 0, false
	}
	return Call{Name: name, Args: args, Raw: text[pos:next]}, next, true
}

// parseArgs consumes a comma-separated argument list starting just
// after the opening paren. Commas and parens inside quotes do not
// delimit; nested unquoted parens must balance.
func parseArgs(text string, i int) ([]string, int, bool) {
	var args []string
	var tok strings.Builder
	depth := 1
	quote := byte(0)
	empty := true // no token characters seen since the opening paren

	flush := func() {
		args = append(args, cleanToken(tok.String()))
		tok.Reset()
	}

	for ; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == '\\' && i+1 < len(text) {
				tok.WriteByte(c)
				i++
				tok.WriteByte(text[i])
				continue
			}
			tok.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
			empty = false
			tok.WriteByte(c)
		case '(':
			depth++
			tok.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				if !empty || len(args) > 0 {
					flush()
				}
				return args, i + 1, true
			}
			tok.WriteByte(c)
		case ',':
			if depth == 1 {
				flush()
				empty = false
			} else {
				tok.WriteByte(c)
			}
		default:
			if !isSpace(c) {
				empty = false
			}
			tok.WriteByte(c)
		}
	}
	// Ran out of text inside the call: unbalanced parens or an
	// unterminated quote.
	return nil, 0, false
}

// cleanToken trims surrounding whitespace, strips one pair of matching
// boundary quotes, and resolves escapes inside quoted tokens.
func cleanToken(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		q := s[0]
		s = s[1 : len(s)-1]
		r := strings.NewReplacer(
			`\`+string(q), string(q),
			`\\`, `\`,
			`\n`, "\n",
			`\t`, "\t",
		)
		s = r.Replace(s)
	}
	return s
}

func isIdent(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
