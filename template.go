package ygggo_formsql

import "strings"

// DefaultPlaceholderType is the coercion token used when a placeholder omits ":type".
const DefaultPlaceholderType = "string"

// Placeholder is one {name} or {name:type} occurrence in a template.
type Placeholder struct {
	Name string
	Type string
}

// CompiledStatement is a template rewritten to positional form.
// Query carries one '?' marker per entry in Placeholders, in the same order.
type CompiledStatement struct {
	Template     string
	Query        string
	Placeholders []Placeholder
}

// Names returns the placeholder names in positional order, duplicates included.
func (cs CompiledStatement) Names() []string {
	names := make([]string, len(cs.Placeholders))
	for i, p := range cs.Placeholders {
		names[i] = p.Name
	}
	return names
}

// Compile converts a template with {name} / {name:type} placeholders into a
// positional query and the ordered placeholder list.
//
// The scan is a single left-to-right pass over bytes. A '{' that does not start a
// complete placeholder is copied through unchanged and scanning resumes right after it,
// so "{{id}}" yields "{?}}". There is no escape for literal braces.
// The same name appearing twice yields two independent placeholders.
func Compile(template string) CompiledStatement {
	var b strings.Builder
	b.Grow(len(template))
	var placeholders []Placeholder
	i := 0
	for i < len(template) {
		ch := template[i]
		if ch == '{' {
			if p, next, ok := scanPlaceholder(template, i); ok {
				placeholders = append(placeholders, p)
				b.WriteByte('?')
				i = next
				continue
			}
		}
		b.WriteByte(ch)
		i++
	}
	return CompiledStatement{Template: template, Query: b.String(), Placeholders: placeholders}
}

type scanState int

const (
	scanName scanState = iota
	scanType
)

// scanPlaceholder reads a placeholder whose '{' sits at start. It reports the
// index just past the closing '}' on success.
func scanPlaceholder(s string, start int) (Placeholder, int, bool) {
	state := scanName
	nameStart, typeStart := start+1, -1
	for j := start + 1; j < len(s); j++ {
		c := s[j]
		switch state {
		case scanName:
			switch {
			case isNameByte(c):
				continue
			case j == nameStart:
				return Placeholder{}, 0, false
			case c == '}':
				return Placeholder{Name: s[nameStart:j], Type: DefaultPlaceholderType}, j + 1, true
			case c == ':':
				state = scanType
				typeStart = j + 1
			default:
				return Placeholder{}, 0, false
			}
		case scanType:
			switch {
			case isTypeByte(c):
				continue
			case c == '}' && j > typeStart:
				return Placeholder{Name: s[nameStart : typeStart-1], Type: s[typeStart:j]}, j + 1, true
			default:
				return Placeholder{}, 0, false
			}
		}
	}
	// unterminated
	return Placeholder{}, 0, false
}

func isNameByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

func isTypeByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
