package waterfall

import (
	"fmt"
	"math"

	"waterfall/pkg/html"
)

const (
	ColumnClass     = "ui-waterfall-column"
	TransitionClass = "ui-waterfall-transition"
)

// ColumnManager owns the column containers attached to the surface root
// and the numeric column width used for aspect-ratio math.
type ColumnManager struct {
	surface Surface
	columns []*html.Node
	width   float64
}

func NewColumnManager(s Surface) *ColumnManager {
	return &ColumnManager{surface: s}
}

// Init replaces the column set with count fresh columns. Without an
// explicit width every column takes 100/count percent minus
// ceil(gutter*2/3) pixels. It returns the cards detached from the old
// columns and false when the root is not available yet; a later call
// retries.
func (m *ColumnManager) Init(count int, gutter, explicitWidth float64, transition bool) ([]*html.Node, bool) {
	root := m.surface.Root()
	if root == nil {
		return nil, false
	}
	detached := m.DestroyAll()
	if count < 1 {
		count = DefaultColumnCount
	}

	gap := math.Ceil(gutter * 2 / 3)
	share := 100 / float64(count)
	if explicitWidth > 0 {
		m.width = explicitWidth
	} else {
		m.width = share/100*m.surface.Viewport().Width - gap
	}

	for i := 0; i < count; i++ {
		col := html.NewElement("div")
		col.AddClass(ColumnClass)
		if transition {
			col.AddClass(TransitionClass)
		}
		col.SetStyle("display", "flex")
		col.SetStyle("flex-direction", "column")
		col.SetStyle("gap", html.FormatPx(gutter))
		if explicitWidth > 0 {
			col.SetStyle("width", html.FormatPx(explicitWidth))
		} else {
			col.SetStyle("width", fmt.Sprintf("calc(%s%% - %s)", formatNumber(share), html.FormatPx(gap)))
		}
		if i != 0 {
			col.SetStyle("margin-left", html.FormatPx(gutter))
		}
		root.AddChild(col)
		m.columns = append(m.columns, col)
	}
	return detached, true
}

// Clear empties every column and keeps the shells. The removed cards are
// returned in column order.
func (m *ColumnManager) Clear() []*html.Node {
	var removed []*html.Node
	for _, col := range m.columns {
		removed = append(removed, col.ElementChildren()...)
		col.RemoveAll()
	}
	return removed
}

// DestroyAll removes the column shells from the root.
func (m *ColumnManager) DestroyAll() []*html.Node {
	removed := m.Clear()
	for _, col := range m.columns {
		col.Remove()
	}
	m.columns = nil
	return removed
}

// Columns returns the live column containers in creation order.
func (m *ColumnManager) Columns() []*html.Node {
	return m.columns
}

// Width is the numeric column width computed by the last Init.
func (m *ColumnManager) Width() float64 {
	return m.width
}

// Shortest returns the column with the minimum measured height. Ties go to
// the column created first. It returns nil without columns.
func (m *ColumnManager) Shortest() *html.Node {
	var min *html.Node
	minHeight := 0.0
	for _, col := range m.columns {
		h := m.surface.Height(col)
		if min == nil || h < minHeight {
			min, minHeight = col, h
		}
	}
	return min
}

// Heights reports the measured height of every column.
func (m *ColumnManager) Heights() []float64 {
	out := make([]float64, len(m.columns))
	for i, col := range m.columns {
		out[i] = m.surface.Height(col)
	}
	return out
}

func formatNumber(v float64) string {
	s := html.FormatPx(v)
	return s[:len(s)-2]
}
