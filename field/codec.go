package field

import (
	"strings"
	"unicode"
)

// OptionDelimiter separates the options of a choice field in
// possible_answers. Commas are free for option text and for joining
// multichoice answers.
const OptionDelimiter = `\`

// MultiDelimiter joins the selected options of a multichoice answer.
const MultiDelimiter = ","

func SplitOptions(s *string) []string {
	if s == nil {
		return nil
	}
	return splitTrimmed(*s, OptionDelimiter)
}

func JoinOptions(opts []string) string {
	return joinTrimmed(opts, OptionDelimiter)
}

func EncodeMulti(selected []string) string {
	return joinTrimmed(selected, MultiDelimiter)
}

func DecodeMulti(value string) []string {
	return splitTrimmed(value, MultiDelimiter)
}

func splitTrimmed(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinTrimmed(parts []string, sep string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// Toggle adds or removes opt from an encoded multichoice value, keeping the
// selection order.
func Toggle(value, opt string, selected bool) string {
	opt = strings.TrimSpace(opt)
	current := DecodeMulti(value)
	out := make([]string, 0, len(current)+1)
	for _, v := range current {
		if v != opt {
			out = append(out, v)
		}
	}
	if selected {
		out = append(out, opt)
	}
	return EncodeMulti(out)
}

func EncodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// DecodeBool reports the boolean and whether the field was answered at all.
func DecodeBool(value string) (b bool, answered bool) {
	switch value {
	case "1":
		return true, true
	case "0":
		return false, true
	}
	return false, false
}

func sanitizeNumber(value string, allowNegative bool) string {
	var sb strings.Builder
	dot := false
	for i, r := range strings.TrimSpace(value) {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.' && !dot:
			dot = true
			sb.WriteRune(r)
		case r == '-' && i == 0 && allowNegative:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func keepOnly(value string, keep func(rune) bool) string {
	return strings.Map(func(r rune) rune {
		if keep(r) {
			return r
		}
		return -1
	}, value)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlpha(r rune) bool {
	return isASCIILetter(r) || unicode.IsSpace(r)
}

func isAlphanum(r rune) bool {
	return isASCIILetter(r) || isASCIIDigit(r) || unicode.IsSpace(r)
}

func sanitizePhone(value string) string {
	var sb strings.Builder
	for i, r := range strings.TrimSpace(value) {
		switch {
		case r == '+' && i == 0:
			sb.WriteRune(r)
		case isASCIIDigit(r), r == ' ', r == '-', r == '(', r == ')':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
