package pgnscan

import (
	"strings"
	"unicode"
)

// movetext tokenizes the movetext of one game and reports its moves.
// Comments, NAGs, annotation suffixes, move numbers and result tokens are dropped.
func (s *Scanner) movetext(text string) error {
	var tok strings.Builder
	depth := 0     // parenthesis nesting
	skipDepth := 0 // nesting at which a skipped variation started, 0 when none

	flush := func() error {
		if tok.Len() == 0 {
			return nil
		}
		t := tok.String()
		tok.Reset()
		if skipDepth > 0 {
			return nil
		}
		san, ok := cleanToken(t)
		if !ok {
			return nil
		}
		return s.v.SAN(san)
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '{':
			if err := flush(); err != nil {
				return err
			}
			end := strings.IndexByte(text[i:], '}')
			if end < 0 {
				return nil
			}
			i += end
		case c == ';':
			if err := flush(); err != nil {
				return err
			}
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				return nil
			}
			i += end
		case c == '(':
			if err := flush(); err != nil {
				return err
			}
			depth++
			if skipDepth == 0 && s.v.BeginVariation() {
				skipDepth = depth
			}
		case c == ')':
			if err := flush(); err != nil {
				return err
			}
			if depth > 0 {
				if depth == skipDepth {
					skipDepth = 0
				}
				depth--
			}
		case c == '.' || unicode.IsSpace(rune(c)):
			if c == '.' && isMoveNumber(tok.String()) {
				tok.Reset()
				continue
			}
			if err := flush(); err != nil {
				return err
			}
		default:
			tok.WriteByte(c)
		}
	}
	return flush()
}

// cleanToken strips annotation glyphs from a movetext token and reports
// whether what remains is a move.
func cleanToken(t string) (string, bool) {
	if t == "" || t[0] == '$' || isMoveNumber(t) {
		return "", false
	}
	switch t {
	case "1-0", "0-1", "1/2-1/2", "*":
		return "", false
	}
	t = strings.TrimRight(t, "!?")
	if t == "" {
		return "", false
	}
	return t, true
}

func isMoveNumber(t string) bool {
	if t == "" {
		return false
	}
	for i := 0; i < len(t); i++ {
		if t[i] < '0' || t[i] > '9' {
			return false
		}
	}
	return true
}
