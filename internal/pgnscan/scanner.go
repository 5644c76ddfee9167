// Package pgnscan tokenizes PGN text and reports it to a Visitor game by game.
package pgnscan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/freeeve/chessgraph/trainer/internal/game"
)

// Visitor receives the events of one game at a time.
type Visitor interface {
	BeginGame()
	Header(key, value string)
	// EndHeaders returns true to skip the movetext of the current game.
	EndHeaders() (skip bool)
	// BeginVariation returns true to skip the parenthesised variation.
	BeginVariation() (skip bool)
	SAN(san string) error
	// EndGame returns the finished game, or nil when the game was skipped.
	EndGame() (*game.Game, error)
}

// Scanner splits a PGN stream into games and drives a Visitor over each.
type Scanner struct {
	r       *bufio.Reader
	v       Visitor
	closers []func() error

	line    int    // lines consumed so far
	pending string // first line of the next game, already read
	hasNext bool
	eof     bool
}

// NewScanner returns a Scanner reading PGN text from r.
func NewScanner(r io.Reader, v Visitor) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 1<<20), v: v}
}

// OpenFile opens a PGN file. Files ending in .zst are decompressed on the fly.
func OpenFile(path string, v Visitor) (*Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".zst") {
		s := NewScanner(f, v)
		s.closers = append(s.closers, f.Close)
		return s, nil
	}
	zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd reader %s: %w", path, err)
	}
	s := NewScanner(zr, v)
	s.closers = append(s.closers, func() error { zr.Close(); return nil }, f.Close)
	return s, nil
}

// Close releases the underlying file, if the Scanner opened one.
func (s *Scanner) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// Line returns the number of input lines consumed so far.
func (s *Scanner) Line() int {
	return s.line
}

// Next scans one game and returns what the Visitor produced for it.
// A skipped game yields (nil, nil). io.EOF is returned once the input is exhausted.
func (s *Scanner) Next() (*game.Game, error) {
	var tags []string
	var body strings.Builder
	var hasBody, sawBlank, inComment bool
	start := 0

	for {
		line, ok, err := s.readLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		trimmed := strings.TrimSpace(line)
		if inComment {
			body.WriteString(line)
			body.WriteByte('\n')
			inComment = braceOpen(line, true)
			continue
		}
		if strings.HasPrefix(trimmed, "%") {
			continue
		}
		if trimmed == "" {
			if len(tags) > 0 {
				sawBlank = true
			}
			continue
		}
		if start == 0 {
			start = s.line
		}
		if strings.HasPrefix(trimmed, "[") && (hasBody || (sawBlank && len(tags) > 0)) {
			s.unread(line)
			break
		}
		if strings.HasPrefix(trimmed, "[") && !hasBody {
			tags = append(tags, trimmed)
			continue
		}
		hasBody = true
		body.WriteString(line)
		body.WriteByte('\n')
		inComment = braceOpen(line, false)
	}

	if len(tags) == 0 && !hasBody {
		return nil, io.EOF
	}

	s.v.BeginGame()
	for _, t := range tags {
		key, value, ok := parseTag(t)
		if !ok {
			continue
		}
		s.v.Header(key, value)
	}
	if !s.v.EndHeaders() {
		if err := s.movetext(body.String()); err != nil {
			return nil, fmt.Errorf("game at line %d: %w", start, err)
		}
	}
	g, err := s.v.EndGame()
	if err != nil {
		return nil, fmt.Errorf("game at line %d: %w", start, err)
	}
	return g, nil
}

func (s *Scanner) readLine() (string, bool, error) {
	if s.hasNext {
		s.hasNext = false
		return s.pending, true, nil
	}
	if s.eof {
		return "", false, nil
	}
	line, err := s.r.ReadString('\n')
	if errors.Is(err, io.EOF) {
		s.eof = true
		if line == "" {
			return "", false, nil
		}
	} else if err != nil {
		return "", false, fmt.Errorf("read pgn: %w", err)
	}
	s.line++
	if s.line == 1 {
		line = strings.TrimPrefix(line, "\ufeff")
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}

func (s *Scanner) unread(line string) {
	s.pending = line
	s.hasNext = true
}

// braceOpen reports whether a {...} comment is still open at the end of line.
// A ; comment hides any brace that follows it on the same line.
func braceOpen(line string, open bool) bool {
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case open:
			if c == '}' {
				open = false
			}
		case c == '{':
			open = true
		case c == ';':
			return false
		}
	}
	return open
}

// parseTag splits a tag pair line such as [White "Carlsen, Magnus"].
func parseTag(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return "", "", false
	}
	line = strings.TrimSpace(line[1 : len(line)-1])
	sp := strings.IndexAny(line, " \t")
	if sp <= 0 {
		return "", "", false
	}
	key = line[:sp]
	rest := strings.TrimSpace(line[sp:])
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", "", false
	}

	var sb strings.Builder
	raw := rest[1 : len(rest)-1]
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
		}
		sb.WriteByte(raw[i])
	}
	return key, sb.String(), true
}
