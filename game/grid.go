// Package game implements the 2048 tile-merging engine. It is a pure state
// transition over a fixed 4x4 grid; the only non-determinism is the new
// tile placement, which draws from an injectable random source.
package game

import (
	"fmt"
	"strings"
)

const (
	// Size is the side length of the square grid.
	Size = 4
	// WinTile is the tile value that sets the sticky won flag.
	WinTile = 2048
)

// Grid is a square matrix of cells. A cell is 0 (empty) or a power of two >= 2.
// Grid is a value type, so assignment copies and == compares every cell.
type Grid [Size][Size]uint32

// Cell addresses one grid position.
type Cell struct {
	Row, Col int
}

// RotateCW rotates g 90 degrees clockwise.
func RotateCW(g Grid) Grid {
	var out Grid
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out[c][Size-1-r] = g[r][c]
		}
	}
	return out
}

// RotateCCW rotates g 90 degrees counter-clockwise.
func RotateCCW(g Grid) Grid {
	var out Grid
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out[Size-1-c][r] = g[r][c]
		}
	}
	return out
}

// rotateCW applies n clockwise quarter turns.
func rotateCW(g Grid, n int) Grid {
	for i := 0; i < n%4; i++ {
		g = RotateCW(g)
	}
	return g
}

// EmptyCells lists the empty positions in row-major order.
func EmptyCells(g Grid) []Cell {
	var cells []Cell
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if g[r][c] == 0 {
				cells = append(cells, Cell{Row: r, Col: c})
			}
		}
	}
	return cells
}

// CanMove reports whether any move could change g: an empty cell exists or
// two equal cells are adjacent horizontally or vertically.
func CanMove(g Grid) bool {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			v := g[r][c]
			if v == 0 {
				return true
			}
			if c+1 < Size && g[r][c+1] == v {
				return true
			}
			if r+1 < Size && g[r+1][c] == v {
				return true
			}
		}
	}
	return false
}

// HasWon reports whether any cell has reached WinTile.
func HasWon(g Grid) bool {
	return HighestTile(g) >= WinTile
}

// HighestTile returns the largest cell value.
func HighestTile(g Grid) uint32 {
	var max uint32
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if g[r][c] > max {
				max = g[r][c]
			}
		}
	}
	return max
}

// TileCount returns the number of non-empty cells.
func TileCount(g Grid) int {
	return Size*Size - len(EmptyCells(g))
}

// String renders g as aligned rows, "." for empty cells.
func (g Grid) String() string {
	var b strings.Builder
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			if g[r][c] == 0 {
				fmt.Fprintf(&b, "%5s", ".")
			} else {
				fmt.Fprintf(&b, "%5d", g[r][c])
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
