package game

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		in   string
		want Outcome
		ok   bool
	}{
		{"1-0", WhiteWin, true},
		{"0-1", BlackWin, true},
		{"1/2-1/2", Draw, true},
		{"*", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseOutcome(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseOutcome(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
		if ok && got.String() != tt.in {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), tt.in)
		}
	}
}

func TestOutcome_OneHot(t *testing.T) {
	if got := WhiteWin.OneHot(); got != [3]float32{1, 0, 0} {
		t.Errorf("WhiteWin.OneHot() = %v", got)
	}
	if got := Draw.OneHot(); got != [3]float32{0, 1, 0} {
		t.Errorf("Draw.OneHot() = %v", got)
	}
	if got := BlackWin.OneHot(); got != [3]float32{0, 0, 1} {
		t.Errorf("BlackWin.OneHot() = %v", got)
	}
}

func TestFilter_Accept(t *testing.T) {
	f := Filter{MinElo: 2000, MaxEloDiff: 100}
	tests := []struct {
		name       string
		white, blk int32
		want       bool
	}{
		{"both strong and close", 2700, 2650, true},
		{"diff exactly max", 2100, 2200, true},
		{"diff too large", 2100, 2201, false},
		{"white at floor", 2000, 2050, false},
		{"black below floor", 2050, 1990, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Game{WhiteElo: tt.white, BlackElo: tt.blk}
			if got := f.Accept(g); got != tt.want {
				t.Errorf("Accept(%d vs %d) = %v, want %v", tt.white, tt.blk, got, tt.want)
			}
		})
	}
}

func TestGame_TimeControl(t *testing.T) {
	g := &Game{TimeControlSeconds: 600, TimeControlIncrement: 5}
	if got := g.TimeControl(); got != "600+5" {
		t.Errorf("TimeControl() = %q, want 600+5", got)
	}
	g = &Game{TimeControlSeconds: Untimed, TimeControlIncrement: Untimed}
	if !g.Untimed() || g.TimeControl() != "-" {
		t.Errorf("untimed game renders %q", g.TimeControl())
	}
}

func TestGame_WritePGN(t *testing.T) {
	var moves []Move
	for _, uci := range []string{"e2e4", "c7c6", "d2d4", "d7d5", "g1f3"} {
		m, err := ParseUCI(uci)
		if err != nil {
			t.Fatal(err)
		}
		moves = append(moves, m)
	}
	g := &Game{
		WhiteName:            "Dominguez Perez, Leinier",
		BlackName:            "Navara, David",
		WhiteElo:             2739,
		BlackElo:             2737,
		Outcome:              WhiteWin,
		TimeControlSeconds:   600,
		TimeControlIncrement: 0,
		Moves:                moves,
	}

	var buf bytes.Buffer
	if err := g.WritePGN(&buf); err != nil {
		t.Fatalf("WritePGN: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`[White "Dominguez Perez, Leinier"]`,
		`[BlackElo "2737"]`,
		`[TimeControl "600+0"]`,
		`[Result "1-0"]`,
		"1. e4 c6 2. d4 d5 3. Nf3 1-0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("WritePGN output missing %q:\n%s", want, out)
		}
	}
}
