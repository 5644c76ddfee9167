package traindata

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/freeeve/chessgraph/trainer/internal/features"
	"github.com/freeeve/chessgraph/trainer/internal/game"
	"github.com/freeeve/chessgraph/trainer/internal/gamedb"
)

func gameBlob(t *testing.T, outcome game.Outcome, ucis ...string) []byte {
	t.Helper()
	g := &game.Game{
		WhiteName: "A", BlackName: "B",
		WhiteElo: 2700, BlackElo: 2650,
		Outcome:            outcome,
		TimeControlSeconds: 600, TimeControlIncrement: 5,
	}
	for _, u := range ucis {
		m, err := game.ParseUCI(u)
		if err != nil {
			t.Fatal(err)
		}
		g.Moves = append(g.Moves, m)
	}
	blob, err := gamedb.MarshalGame(g)
	if err != nil {
		t.Fatal(err)
	}
	return blob
}

func TestBuild_Scenario(t *testing.T) {
	b := &Builder{Threads: 2, Logger: zerolog.Nop()}
	batch, err := b.Build(context.Background(), [][]byte{gameBlob(t, game.WhiteWin, "e2e4", "e7e5", "g1f3")})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if batch.Rows != 3 || batch.Features != features.FullFeatures {
		t.Fatalf("batch = %d rows x %d features, want 3 x 37", batch.Rows, batch.Features)
	}
	if !batch.valid() {
		t.Fatalf("batch slices do not match shape %v", batch.InputShape())
	}

	wantTurn := []float32{-1, 1, -1}
	for r := 0; r < batch.Rows; r++ {
		input, outcome := batch.Row(r)
		if outcome[0] != 1 || outcome[1] != 0 || outcome[2] != 0 {
			t.Errorf("row %d outcome = %v, want [1 0 0]", r, outcome)
		}
		if got := input[features.PlaneTurn]; got != wantTurn[r] {
			t.Errorf("row %d turn = %v, want %v", r, got, wantTurn[r])
		}
	}

	if got := batch.InputTensor().Shape(); len(got) != 4 || got[0] != 3 || got[3] != 37 {
		t.Errorf("input tensor shape = %v", got)
	}
	if got := batch.OutputTensor().Shape(); len(got) != 2 || got[0] != 3 || got[1] != 3 {
		t.Errorf("output tensor shape = %v", got)
	}
}

func TestBuild_Empty(t *testing.T) {
	b := &Builder{Encoder: features.Legacy{}}
	batch, err := b.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if batch.Rows != 0 || batch.Features != features.LegacyFeatures || len(batch.Inputs) != 0 {
		t.Errorf("empty build = %+v", batch)
	}
	if batch.InputTensor() != nil {
		t.Error("empty batch has an input tensor")
	}
}

func TestBuild_ManyGames(t *testing.T) {
	var blobs [][]byte
	var wantRows int
	var wantDraws int
	for i := 0; i < 20; i++ {
		switch i % 3 {
		case 0:
			blobs = append(blobs, gameBlob(t, game.Draw, "d2d4", "d7d5"))
			wantRows += 2
			wantDraws += 2
		case 1:
			blobs = append(blobs, gameBlob(t, game.BlackWin, "e2e4"))
			wantRows++
		default:
			blobs = append(blobs, gameBlob(t, game.WhiteWin))
		}
	}

	b := &Builder{Threads: 4, Encoder: features.Legacy{}}
	batch, err := b.Build(context.Background(), blobs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if batch.Rows != wantRows {
		t.Errorf("rows = %d, want %d", batch.Rows, wantRows)
	}
	draws := 0
	for r := 0; r < batch.Rows; r++ {
		_, outcome := batch.Row(r)
		if outcome[1] == 1 {
			draws++
		}
	}
	if draws != wantDraws {
		t.Errorf("draw rows = %d, want %d", draws, wantDraws)
	}
}

func TestBuild_Inconsistent(t *testing.T) {
	blobs := [][]byte{
		gameBlob(t, game.WhiteWin, "e2e4"),
		gameBlob(t, game.WhiteWin, "e2e5"),
	}
	b := &Builder{Threads: 2}
	batch, err := b.Build(context.Background(), blobs)
	if !errors.Is(err, gamedb.ErrInconsistent) {
		t.Fatalf("Build = %v, want ErrInconsistent", err)
	}
	if batch != nil {
		t.Error("failed build returned a partial batch")
	}
}

func TestBuild_BadRecord(t *testing.T) {
	b := &Builder{Threads: 1}
	if _, err := b.Build(context.Background(), [][]byte{{0xde, 0xad}}); !errors.Is(err, gamedb.ErrFormat) {
		t.Errorf("Build = %v, want ErrFormat", err)
	}
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &Builder{Threads: 2}
	if _, err := b.Build(ctx, [][]byte{gameBlob(t, game.Draw, "e2e4")}); !errors.Is(err, context.Canceled) {
		t.Errorf("Build = %v, want context.Canceled", err)
	}
}

func TestWorkQueue(t *testing.T) {
	q := newWorkQueue([]int{1, 2, 3})
	for _, want := range []int{3, 2, 1} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Fatalf("Pop = %d, %v; want %d", got, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue succeeded")
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d", q.Len())
	}
}
