// Copyright 2026 The GPUScope Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// brailleBase is U+2800, the empty braille pattern. Each braille cell
// addresses a 2x4 dot grid, giving the chart twice the horizontal and
// four times the vertical resolution of the character grid.
const brailleBase = 0x2800

// brailleDots maps (dotX, dotY) within a cell to its pattern bit.
var brailleDots = [2][4]rune{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// chartCanvas is a braille drawing surface. Dot coordinates run from
// (0,0) at the top-left to (2*width-1, 4*height-1); values plotted to
// the same cell keep the union of their dots and the color of the
// last writer.
type chartCanvas struct {
	width  int // cells
	height int // cells
	cells  []rune
	colors []int
}

func newChartCanvas(width, height int) *chartCanvas {
	return &chartCanvas{
		width:  width,
		height: height,
		cells:  make([]rune, width*height),
		colors: make([]int, width*height),
	}
}

// dotWidth returns the horizontal dot resolution.
func (c *chartCanvas) dotWidth() int { return c.width * 2 }

// dotHeight returns the vertical dot resolution.
func (c *chartCanvas) dotHeight() int { return c.height * 4 }

func (c *chartCanvas) setDot(dotX, dotY, colorIndex int) {
	if dotX < 0 || dotX >= c.dotWidth() || dotY < 0 || dotY >= c.dotHeight() {
		return
	}
	cell := (dotY/4)*c.width + dotX/2
	c.cells[cell] |= brailleDots[dotX%2][dotY%4]
	c.colors[cell] = colorIndex
}

// plotSeries draws one percentage series, newest value at the right
// edge. Values map 0 to the bottom dot row and 100 to the top; each
// step to a new column fills the vertical span from the previous
// value so the line reads as connected rather than a dot scatter.
// Series longer than the canvas width show only their newest tail.
func (c *chartCanvas) plotSeries(values []float32, colorIndex int) {
	if len(values) == 0 {
		return
	}

	dotWidth := c.dotWidth()
	if len(values) > dotWidth {
		values = values[len(values)-dotWidth:]
	}
	startX := dotWidth - len(values)

	previousY := -1
	for i, value := range values {
		x := startX + i
		y := c.yForPercent(value)
		c.setDot(x, y, colorIndex)

		if previousY >= 0 && previousY != y {
			step := 1
			if previousY > y {
				step = -1
			}
			for fill := previousY + step; fill != y; fill += step {
				c.setDot(x, fill, colorIndex)
			}
		}
		previousY = y
	}
}

// yForPercent maps a 0-100 value to a dot row, clamping out-of-range
// input to the edges.
func (c *chartCanvas) yForPercent(value float32) int {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	span := c.dotHeight() - 1
	return span - int(value/100*float32(span)+0.5)
}

// render produces the canvas as styled terminal lines, one string per
// cell row.
func (c *chartCanvas) render(theme Theme) []string {
	lines := make([]string, c.height)
	styles := make(map[int]lipgloss.Style)

	for row := 0; row < c.height; row++ {
		var line strings.Builder
		for column := 0; column < c.width; column++ {
			cell := row*c.width + column
			if c.cells[cell] == 0 {
				line.WriteByte(' ')
				continue
			}
			colorIndex := c.colors[cell]
			style, ok := styles[colorIndex]
			if !ok {
				style = lipgloss.NewStyle().Foreground(theme.SeriesColor(colorIndex))
				styles[colorIndex] = style
			}
			line.WriteString(style.Render(string(brailleBase | c.cells[cell])))
		}
		lines[row] = line.String()
	}
	return lines
}
