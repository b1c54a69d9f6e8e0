// Package debugtext draws a fixed-grid text overlay on top of a frame.
package debugtext

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const TabWidth = 4

var face = basicfont.Face7x13

// GlyphSize is the pixel size of one canvas cell.
func GlyphSize() (width, height int) {
	return face.Advance, face.Height
}

type cell struct {
	r rune
	c color.RGBA
}

// Canvas is a grid of characters with a cursor. Text past the right edge
// wraps, text past the last row is dropped.
type Canvas struct {
	cols, rows int
	cells      []cell
	x, y       int
	color      color.RGBA
}

func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{
		cols:  cols,
		rows:  rows,
		cells: make([]cell, cols*rows),
		color: color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
	c.Clear()
	return c
}

func (c *Canvas) Size() (cols, rows int) {
	return c.cols, c.rows
}

func (c *Canvas) SetColor(col color.RGBA) {
	c.color = col
}

// Clear blanks every cell and homes the cursor. The color is kept.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = cell{r: ' '}
	}
	c.x, c.y = 0, 0
}

// Locate moves the cursor to column x of row y. Negative values clamp to 0.
func (c *Canvas) Locate(x, y int) {
	c.x, c.y = max(x, 0), max(y, 0)
}

func (c *Canvas) Empty() bool {
	for _, cl := range c.cells {
		if cl.r != ' ' {
			return false
		}
	}
	return true
}

func (c *Canvas) newline() {
	c.x = 0
	c.y++
}

func (c *Canvas) Print(s string) {
	for _, r := range s {
		switch r {
		case '\n':
			c.newline()
			continue
		case '\r':
			c.x = 0
			continue
		case '\t':
			c.x = (c.x/TabWidth + 1) * TabWidth
			if c.x >= c.cols {
				c.newline()
			}
			continue
		}

		if c.x >= c.cols {
			c.newline()
		}
		if c.y >= c.rows {
			continue
		}
		c.cells[c.y*c.cols+c.x] = cell{r: r, c: c.color}
		c.x++
	}
}

func (c *Canvas) Printf(format string, args ...any) {
	c.Print(fmt.Sprintf(format, args...))
}

// Line returns row y with trailing blanks removed.
func (c *Canvas) Line(y int) string {
	var b strings.Builder
	for _, cl := range c.cells[y*c.cols : (y+1)*c.cols] {
		b.WriteRune(cl.r)
	}
	return strings.TrimRight(b.String(), " ")
}

func (c *Canvas) equal(cells []cell) bool {
	if len(cells) != len(c.cells) {
		return false
	}
	for i := range cells {
		if cells[i] != c.cells[i] {
			return false
		}
	}
	return true
}

func (c *Canvas) snapshot() []cell {
	return append([]cell(nil), c.cells...)
}

// Rasterize renders the canvas onto a transparent RGBA image of
// cols*7 x rows*13 pixels.
func (c *Canvas) Rasterize() *image.RGBA {
	gw, gh := GlyphSize()
	img := image.NewRGBA(image.Rect(0, 0, c.cols*gw, c.rows*gh))
	ascent := face.Metrics().Ascent.Ceil()

	drawer := &font.Drawer{Dst: img, Face: face}
	for y := 0; y < c.rows; y++ {
		for x := 0; x < c.cols; x++ {
			cl := c.cells[y*c.cols+x]
			if cl.r == ' ' {
				continue
			}
			drawer.Src = image.NewUniform(cl.c)
			drawer.Dot = fixed.P(x*gw, y*gh+ascent)
			drawer.DrawString(string(cl.r))
		}
	}
	return img
}
