package dispatch

import (
	"strings"
)

// Placeholder names recognized in command templates.
const (
	FieldWatchedDir               = "watched-dir"
	FieldFullPath                 = "full-path"
	FieldDestRelativePath         = "dest-relative-path"
	FieldEventKindName            = "event-kind-name"
	FieldEventKindRaw             = "event-kind-raw"
	FieldRenameSourcePath         = "rename-source-path"
	FieldRenameSourceRelativePath = "rename-source-relative-path"
	FieldRenameCookie             = "rename-cookie"
	FieldTimestamp                = "timestamp"
)

var fieldNames = map[string]bool{
	FieldWatchedDir:               true,
	FieldFullPath:                 true,
	FieldDestRelativePath:         true,
	FieldEventKindName:            true,
	FieldEventKindRaw:             true,
	FieldRenameSourcePath:         true,
	FieldRenameSourceRelativePath: true,
	FieldRenameCookie:             true,
	FieldTimestamp:                true,
}

// Older job files use these names.
var fieldAliases = map[string]string{
	"watched":  FieldWatchedDir,
	"filename": FieldFullPath,
	"tflags":   FieldEventKindName,
	"nflags":   FieldEventKindRaw,
}

// Fields holds the raw, unquoted placeholder values for one event.
type Fields map[string]string

// lookup resolves name, following aliases. Missing values of known
// placeholders are empty.
func (f Fields) lookup(name string) (string, bool) {
	if canonical, ok := fieldAliases[name]; ok {
		name = canonical
	}
	if !fieldNames[name] {
		return "", false
	}
	return f[name], true
}

// Quote wraps s in single quotes so a POSIX shell reads it as one literal
// word. Embedded single quotes are written as '\''.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Render substitutes placeholders in tmpl with quoted values from fields.
//
// Placeholders are written ${name} or $name. A bare name is the longest run
// of [A-Za-z0-9_-]; if that is not a known name, it is shortened at '-'
// boundaries so "$full-path-old" still renders full-path followed by "-old".
// "$$" is a literal dollar. Unknown placeholders are copied unchanged.
func Render(tmpl string, fields Fields) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		if c != '$' || i+1 == len(tmpl) {
			b.WriteByte(c)
			i++
			continue
		}

		next := tmpl[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i += 2

		case next == '{':
			end := strings.IndexByte(tmpl[i+2:], '}')
			if end < 0 {
				b.WriteString(tmpl[i:])
				return b.String()
			}
			name := tmpl[i+2 : i+2+end]
			if value, ok := fields.lookup(name); ok {
				b.WriteString(Quote(value))
			} else {
				b.WriteString(tmpl[i : i+3+end])
			}
			i += 3 + end

		case isNameChar(next):
			j := i + 1
			for j < len(tmpl) && isNameChar(tmpl[j]) {
				j++
			}
			name, value, ok := longestKnown(tmpl[i+1:j], fields)
			if ok {
				b.WriteString(Quote(value))
				i += 1 + len(name)
			} else {
				b.WriteString(tmpl[i:j])
				i = j
			}

		default:
			b.WriteByte('$')
			i++
		}
	}
	return b.String()
}

// longestKnown finds the longest known placeholder that name starts with,
// trying name itself and then each prefix ending before a '-'.
func longestKnown(name string, fields Fields) (string, string, bool) {
	for candidate := name; candidate != ""; {
		if value, ok := fields.lookup(candidate); ok {
			return candidate, value, true
		}
		cut := strings.LastIndexByte(candidate, '-')
		if cut < 0 {
			break
		}
		candidate = candidate[:cut]
	}
	return "", "", false
}

func isNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_' || c == '-'
}
