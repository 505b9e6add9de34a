package game

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Direction is a move direction.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection accepts direction names, WASD keys and arrow key names.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "w", "arrowup":
		return Up, true
	case "down", "s", "arrowdown":
		return Down, true
	case "left", "a", "arrowleft":
		return Left, true
	case "right", "d", "arrowright":
		return Right, true
	}
	return 0, false
}

// quarterTurns is the number of clockwise rotations that makes d "slide left".
func (d Direction) quarterTurns() int {
	switch d {
	case Left:
		return 0
	case Down:
		return 1
	case Right:
		return 2
	case Up:
		return 3
	}
	panic(fmt.Sprintf("game: invalid direction %d", int(d)))
}

// State is one snapshot of a play-through.
type State struct {
	Grid     Grid   `json:"grid"`
	Score    uint32 `json:"score"`
	Moves    uint32 `json:"moves"`
	GameOver bool   `json:"game_over"`
	Won      bool   `json:"won"`
}

// Rand is the random source used for tile placement. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// Engine applies moves and places random tiles. The zero value is not
// usable; construct with NewEngine.
type Engine struct {
	rng Rand
}

// NewEngine returns an Engine drawing from rng, or from the process-wide
// source when rng is nil.
func NewEngine(rng Rand) *Engine {
	if rng == nil {
		rng = globalRand{}
	}
	return &Engine{rng: rng}
}

// NewSeededEngine returns an Engine with a deterministic PCG source.
func NewSeededEngine(seed1, seed2 uint64) *Engine {
	return NewEngine(rand.New(rand.NewPCG(seed1, seed2)))
}

// NewGame returns a fresh state with exactly two random tiles.
func (e *Engine) NewGame() State {
	var g Grid
	g = e.AddRandomTile(g)
	g = e.AddRandomTile(g)
	return State{Grid: g}
}

// AddRandomTile places a 2 (90%) or a 4 (10%) on a uniformly chosen empty
// cell. A full grid is returned unchanged.
func (e *Engine) AddRandomTile(g Grid) Grid {
	empty := EmptyCells(g)
	if len(empty) == 0 {
		return g
	}
	cell := empty[e.rng.IntN(len(empty))]
	v := uint32(2)
	if e.rng.Float64() >= 0.9 {
		v = 4
	}
	g[cell.Row][cell.Col] = v
	return g
}

// Move applies d to s. If no tile moves, s is returned unchanged. Otherwise
// the merged values are added to the score, the move count is incremented,
// one random tile is placed and the won/game-over flags are recomputed.
// An invalid direction panics.
func (e *Engine) Move(s State, d Direction) State {
	next, gained := slide(s.Grid, d)
	if next == s.Grid {
		return s
	}

	next = e.AddRandomTile(next)
	return State{
		Grid:     next,
		Score:    s.Score + gained,
		Moves:    s.Moves + 1,
		Won:      s.Won || HasWon(next),
		GameOver: !CanMove(next),
	}
}

// slide normalises d to a left slide, merges every row and rotates back.
// It returns the moved grid and the sum of the merged tiles.
func slide(g Grid, d Direction) (Grid, uint32) {
	turns := d.quarterTurns()
	work := rotateCW(g, turns)

	var gained uint32
	for r := 0; r < Size; r++ {
		var row uint32
		work[r], row = slideRow(work[r])
		gained += row
	}
	return rotateCW(work, 4-turns), gained
}

// slideRow packs non-zero values to the left and merges equal neighbours
// left to right. A tile produced by a merge is not merged again.
func slideRow(row [Size]uint32) ([Size]uint32, uint32) {
	var out [Size]uint32
	var gained uint32
	n := 0
	merged := false
	for _, v := range row {
		if v == 0 {
			continue
		}
		if n > 0 && !merged && out[n-1] == v {
			out[n-1] = v * 2
			gained += v * 2
			merged = true
			continue
		}
		out[n] = v
		n++
		merged = false
	}
	return out, gained
}
