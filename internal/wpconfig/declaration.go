package wpconfig

import (
	"regexp"
	"strings"
)

// ConstantName is the single constant this package manages.
const ConstantName = "RECOVERY_MODE_EMAIL"

// declarationPattern matches a define() of ConstantName regardless of
// whitespace or quote style. The value is a single- or double-quoted
// literal on one line; backslash escapes inside it are honoured.
var declarationPattern = regexp.MustCompile(
	`define\s*\(\s*['"]` + ConstantName + `['"]\s*,\s*` +
		`(?:'((?:[^'\\\n]|\\.)*)'|"((?:[^"\\\n]|\\.)*)")` +
		`\s*\)\s*;`,
)

// Sentinels are the comment markers new declarations are inserted in
// front of. The first one found wins.
var Sentinels = []string{
	"/* That's all, stop editing! Happy publishing. */",
	"/* That's all, stop editing! Happy blogging. */",
}

// Declaration renders the define() line for address.
func Declaration(address string) string {
	return "define( '" + ConstantName + "', '" + quoteValue(address) + "' );"
}

// quoteValue makes s safe inside a single-quoted PHP string literal.
// Control characters are dropped so the declaration stays on one line.
func quoteValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\'':
			b.WriteString(`\'`)
		case r < 0x20 || r == 0x7f:
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// newline reports the line terminator the content predominantly uses.
func newline(content string) string {
	if strings.Contains(content, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

// Patch returns content with the declaration upserted (or removed when
// remove is true). Everything outside the declaration is left as is.
// Commented-out declarations are never touched. Applying Patch twice with
// the same arguments yields the same output as applying it once.
func Patch(content, address string, remove bool) string {
	locs := liveDeclarations(content)
	nl := newline(content)

	if len(locs) == 0 {
		if remove {
			return content
		}
		decl := Declaration(address)
		for _, sentinel := range Sentinels {
			if idx := strings.Index(content, sentinel); idx >= 0 {
				at := lineStart(content, idx)
				return content[:at] + decl + nl + content[at:]
			}
		}
		return content + nl + decl
	}

	decl := Declaration(address)
	var b strings.Builder
	b.Grow(len(content) + 64)
	prev := 0
	for i, loc := range locs {
		if i == 0 && !remove {
			b.WriteString(content[prev:loc[0]])
			b.WriteString(decl)
			prev = loc[1]
			continue
		}
		start, end, ok := removalSpan(content, loc[0], loc[1], prev)
		if !ok {
			// Shares its line with other code, so cutting it out could
			// change what that code does.
			if remove {
				continue
			}
			b.WriteString(content[prev:loc[0]])
			b.WriteString(decl)
			prev = loc[1]
			continue
		}
		b.WriteString(content[prev:start])
		prev = end
	}
	b.WriteString(content[prev:])
	return b.String()
}

// Embedded reports whether content holds a live declaration that shares
// its line with other code. Patch never removes such a declaration.
func Embedded(content string) bool {
	for _, loc := range liveDeclarations(content) {
		if _, _, ok := removalSpan(content, loc[0], loc[1], 0); !ok {
			return true
		}
	}
	return false
}

// liveDeclarations returns the index pairs of every declaration that is
// not inside a PHP comment.
func liveDeclarations(content string) [][]int {
	var live [][]int
	for _, loc := range declarationPattern.FindAllStringSubmatchIndex(content, -1) {
		if !commented(content, loc[0]) {
			live = append(live, loc)
		}
	}
	return live
}

// commented reports whether pos sits in a line comment, a docblock line
// or an unterminated block comment.
func commented(content string, pos int) bool {
	prefix := strings.TrimSpace(content[lineStart(content, pos):pos])
	switch {
	case strings.HasPrefix(prefix, "//"), strings.HasPrefix(prefix, "#"):
		return true
	case strings.HasPrefix(prefix, "*") && !strings.HasPrefix(prefix, "*/"):
		return true
	}
	head := content[:pos]
	open := strings.LastIndex(head, "/*")
	return open >= 0 && open > strings.LastIndex(head, "*/")
}

func lineStart(content string, pos int) int {
	return strings.LastIndexByte(content[:pos], '\n') + 1
}

func blank(s string) bool {
	return strings.Trim(s, " \t") == ""
}

// removalSpan widens [start, end) to the whole line holding the
// declaration plus one adjacent line break. It reports false when other
// code shares the line. floor bounds how far back the span may reach.
func removalSpan(content string, start, end, floor int) (int, int, bool) {
	from := lineStart(content, start)
	to := end
	for to < len(content) && (content[to] == ' ' || content[to] == '\t') {
		to++
	}
	if !blank(content[from:start]) || from < floor {
		return start, end, false
	}
	rest := content[to:]
	switch {
	case strings.HasPrefix(rest, "\r\n"):
		return from, to + 2, true
	case strings.HasPrefix(rest, "\n"):
		return from, to + 1, true
	case rest != "":
		return start, end, false
	}

	head := content[:from]
	switch {
	case strings.HasSuffix(head, "\r\n") && from-2 >= floor:
		return from - 2, to, true
	case strings.HasSuffix(head, "\n") && from-1 >= floor:
		return from - 1, to, true
	}
	return from, to, true
}

// Find returns the value of the first live declaration in content, if any.
func Find(content string) (string, bool) {
	locs := liveDeclarations(content)
	if len(locs) == 0 {
		return "", false
	}
	m := locs[0]
	if m[2] >= 0 {
		return unquoteValue(content[m[2]:m[3]], '\''), true
	}
	return unquoteValue(content[m[4]:m[5]], '"'), true
}

func unquoteValue(s string, quote byte) string {
	r := strings.NewReplacer(`\\`, `\`, `\`+string(quote), string(quote))
	return r.Replace(s)
}
