package game

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// fixedRand always picks the last empty cell and a fixed tile roll.
type fixedRand struct {
	roll float64
}

func (f fixedRand) IntN(n int) int   { return n - 1 }
func (f fixedRand) Float64() float64 { return f.roll }

func TestNewGame(t *testing.T) {
	e := NewSeededEngine(1, 2)
	for i := 0; i < 50; i++ {
		s := e.NewGame()
		assert.Equal(t, 2, TileCount(s.Grid))
		for _, row := range s.Grid {
			for _, v := range row {
				if v != 0 {
					assert.Contains(t, []uint32{2, 4}, v)
				}
			}
		}
		assert.Zero(t, s.Score)
		assert.Zero(t, s.Moves)
		assert.False(t, s.GameOver)
		assert.False(t, s.Won)
	}
}

func TestMoveLeftMergesPair(t *testing.T) {
	e := NewEngine(fixedRand{roll: 0.1})
	s := State{Grid: Grid{{2, 2, 0, 0}}}

	next := e.Move(s, Left)

	assert.Equal(t, [Size]uint32{4, 0, 0, 0}, next.Grid[0])
	assert.Equal(t, uint32(4), next.Score)
	assert.Equal(t, uint32(1), next.Moves)
	// The new tile lands on the last empty cell.
	assert.Equal(t, uint32(2), next.Grid[Size-1][Size-1])
}

func TestTileRollWeights(t *testing.T) {
	assert.Equal(t, uint32(2), NewEngine(fixedRand{roll: 0.0}).AddRandomTile(Grid{})[3][3])
	assert.Equal(t, uint32(2), NewEngine(fixedRand{roll: 0.899}).AddRandomTile(Grid{})[3][3])
	assert.Equal(t, uint32(4), NewEngine(fixedRand{roll: 0.9}).AddRandomTile(Grid{})[3][3])
}

func TestSlideRow(t *testing.T) {
	cases := []struct {
		name   string
		in     [Size]uint32
		want   [Size]uint32
		gained uint32
	}{
		{"empty", [Size]uint32{}, [Size]uint32{}, 0},
		{"pack", [Size]uint32{0, 2, 0, 4}, [Size]uint32{2, 4, 0, 0}, 0},
		{"pair", [Size]uint32{2, 0, 2, 0}, [Size]uint32{4, 0, 0, 0}, 4},
		{"two pairs", [Size]uint32{2, 2, 2, 2}, [Size]uint32{4, 4, 0, 0}, 8},
		{"no double merge", [Size]uint32{4, 4, 8, 0}, [Size]uint32{8, 8, 0, 0}, 8},
		{"triple", [Size]uint32{2, 2, 2, 0}, [Size]uint32{4, 2, 0, 0}, 4},
		{"merged then pair", [Size]uint32{8, 4, 4, 8}, [Size]uint32{8, 8, 8, 0}, 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, gained := slideRow(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.gained, gained)
		})
	}
}

func TestDirections(t *testing.T) {
	g := Grid{
		{2, 0, 0, 0},
		{2, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 4},
	}
	up, _ := slide(g, Up)
	assert.Equal(t, uint32(4), up[0][0])
	assert.Equal(t, uint32(4), up[0][3])

	down, _ := slide(g, Down)
	assert.Equal(t, uint32(4), down[3][0])
	assert.Equal(t, uint32(4), down[3][3])

	right, _ := slide(g, Right)
	assert.Equal(t, uint32(2), right[0][3])
	assert.Equal(t, uint32(2), right[1][3])
	assert.Equal(t, uint32(4), right[3][3])
}

func TestNoopMoveReturnsSameState(t *testing.T) {
	e := NewEngine(fixedRand{})
	s := State{Grid: Grid{{2, 4, 8, 16}}, Score: 12, Moves: 3}

	next := e.Move(s, Left)
	assert.Equal(t, s, next)
	assert.Equal(t, s, e.Move(next, Left))
}

func TestWonIsSticky(t *testing.T) {
	e := NewEngine(fixedRand{roll: 0.1})
	s := State{Grid: Grid{{1024, 1024, 0, 0}}}

	s = e.Move(s, Left)
	require.True(t, s.Won)
	assert.Equal(t, uint32(2048), s.Grid[0][0])

	// Merge the 2048 away into 4096; the flag stays set.
	s.Grid = Grid{{2048, 2048, 0, 0}}
	s = e.Move(s, Left)
	assert.True(t, s.Won)
}

func TestGameOverRecomputed(t *testing.T) {
	e := NewEngine(fixedRand{roll: 0.1})
	// Merging the 4s frees one cell and the new 2 fills it.
	s := State{Grid: Grid{
		{4, 4, 8, 16},
		{32, 64, 128, 256},
		{512, 1024, 4, 8},
		{16, 32, 64, 128},
	}}
	next := e.Move(s, Left)
	assert.Equal(t, [Size]uint32{8, 8, 16, 2}, next.Grid[0])
	assert.False(t, next.GameOver, "8,8 can still merge")

	full := Grid{
		{2, 4, 2, 4},
		{4, 2, 4, 2},
		{2, 4, 2, 4},
		{4, 2, 4, 2},
	}
	assert.False(t, CanMove(full))
}

func TestInvalidDirectionPanics(t *testing.T) {
	e := NewEngine(fixedRand{})
	assert.Panics(t, func() { e.Move(State{Grid: Grid{{2, 2}}}, Direction(7)) })
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{
		"up": Up, "W": Up, "ArrowUp": Up,
		"s": Down, "left": Left, "arrowright": Right, " d ": Right,
	} {
		got, ok := ParseDirection(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseDirection("x")
	assert.False(t, ok)
}

func TestHighestTile(t *testing.T) {
	assert.Equal(t, uint32(0), HighestTile(Grid{}))
	assert.Equal(t, uint32(512), HighestTile(Grid{{2, 512}, {0, 128}}))
}

// ---- properties ----

func gridGen() *rapid.Generator[Grid] {
	values := []uint32{0, 0, 0, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048}
	return rapid.Custom(func(t *rapid.T) Grid {
		var g Grid
		for r := 0; r < Size; r++ {
			for c := 0; c < Size; c++ {
				g[r][c] = rapid.SampledFrom(values).Draw(t, "cell")
			}
		}
		return g
	})
}

func TestRotationsComposeToIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := gridGen().Draw(t, "grid")
		if RotateCCW(RotateCW(g)) != g {
			t.Fatalf("cw then ccw changed the grid")
		}
		if rotateCW(g, 4) != g {
			t.Fatalf("four clockwise turns changed the grid")
		}
		if RotateCW(RotateCCW(g)) != g {
			t.Fatalf("ccw then cw changed the grid")
		}
	})
}

func TestPlayInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := NewSeededEngine(rapid.Uint64().Draw(t, "s1"), rapid.Uint64().Draw(t, "s2"))
		s := e.NewGame()
		dirs := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 200).Draw(t, "dirs")

		for _, d := range dirs {
			next := e.Move(s, Direction(d))

			for _, row := range next.Grid {
				for _, v := range row {
					if v != 0 && (v < 2 || bits.OnesCount32(v) != 1) {
						t.Fatalf("cell %d is not a power of two", v)
					}
				}
			}
			if next.Score < s.Score {
				t.Fatalf("score decreased: %d -> %d", s.Score, next.Score)
			}
			if s.Won && !next.Won {
				t.Fatalf("won flag was cleared")
			}
			if next.Grid == s.Grid {
				if next != s {
					t.Fatalf("no-op move changed the state")
				}
				if e.Move(next, Direction(d)) != next {
					t.Fatalf("repeated no-op move changed the state")
				}
			} else if next.Moves != s.Moves+1 {
				t.Fatalf("effective move did not increment moves")
			}
			if next.GameOver != !CanMove(next.Grid) {
				t.Fatalf("game over flag out of sync")
			}
			s = next
		}
	})
}
