package drawing

import "github.com/dgnsrekt/tv_overlay/internal/overlay"

// Patch carries partial field updates for an existing drawing. Nil fields are
// left untouched; the drawing's kind can never change through a patch.
type Patch struct {
	Color       *string            `json:"color,omitempty"`
	Visible     *bool              `json:"visible,omitempty"`
	Locked      *bool              `json:"locked,omitempty"`
	LineWidth   *int               `json:"lineWidth,omitempty"`
	LineStyle   *overlay.LineStyle `json:"lineStyle,omitempty"`
	ExtendLeft  *bool              `json:"extendLeft,omitempty"`
	ExtendRight *bool              `json:"extendRight,omitempty"`
	Start       *PricePoint        `json:"start,omitempty"`
	End         *PricePoint        `json:"end,omitempty"`
	Points      []PricePoint       `json:"points,omitempty"`
	Text        *string            `json:"text,omitempty"`
	FontSize    *int               `json:"fontSize,omitempty"`
	FillColor   *string            `json:"fillColor,omitempty"`
	FillOpacity *float64           `json:"fillOpacity,omitempty"`
}

// Collection owns the committed drawings of one chart profile plus the current
// selection. Like Session it assumes a single serialized caller.
type Collection struct {
	drawings []Drawing
	selected string
}

func NewCollection() *Collection {
	return &Collection{}
}

// FromSavedSet restores a collection from a persisted set, defaulting fields
// the set predates.
func FromSavedSet(set SavedSet) *Collection {
	set.Migrate()
	return &Collection{drawings: set.Drawings}
}

// SavedSet snapshots the collection for persistence.
func (c *Collection) SavedSet() SavedSet {
	out := make([]Drawing, len(c.drawings))
	copy(out, c.drawings)
	return SavedSet{Version: SavedSetVersion, Drawings: out}
}

// Add appends a committed drawing.
func (c *Collection) Add(d Drawing) {
	c.drawings = append(c.drawings, d)
}

// Get returns a drawing by id.
func (c *Collection) Get(id string) (Drawing, bool) {
	for _, d := range c.drawings {
		if d.ID == id {
			return d, true
		}
	}
	return Drawing{}, false
}

// List returns the drawings in insertion order.
func (c *Collection) List() []Drawing {
	out := make([]Drawing, len(c.drawings))
	copy(out, c.drawings)
	return out
}

// Len reports the number of drawings.
func (c *Collection) Len() int { return len(c.drawings) }

// Select marks a drawing as selected. Selecting an unknown id is a no-op.
func (c *Collection) Select(id string) bool {
	if _, ok := c.Get(id); !ok {
		return false
	}
	c.selected = id
	return true
}

// Selected returns the selected drawing id, or "".
func (c *Collection) Selected() string { return c.selected }

// Update merges a patch into the drawing with the given id.
func (c *Collection) Update(id string, patch Patch) (Drawing, bool) {
	for i := range c.drawings {
		if c.drawings[i].ID != id {
			continue
		}
		applyPatch(&c.drawings[i], patch)
		return c.drawings[i], true
	}
	return Drawing{}, false
}

// Remove deletes a drawing and clears the selection if it was selected.
func (c *Collection) Remove(id string) bool {
	for i := range c.drawings {
		if c.drawings[i].ID != id {
			continue
		}
		c.drawings = append(c.drawings[:i], c.drawings[i+1:]...)
		if c.selected == id {
			c.selected = ""
		}
		return true
	}
	return false
}

// ClearAll empties the collection and the selection.
func (c *Collection) ClearAll() {
	c.drawings = nil
	c.selected = ""
}

// SetVisibleAll bulk-toggles visibility on every drawing without touching
// geometry.
func (c *Collection) SetVisibleAll(visible bool) {
	for i := range c.drawings {
		c.drawings[i].Visible = visible
	}
}

func applyPatch(d *Drawing, p Patch) {
	if p.Color != nil {
		d.Color = *p.Color
	}
	if p.Visible != nil {
		d.Visible = *p.Visible
	}
	if p.Locked != nil {
		d.Locked = *p.Locked
	}
	if p.LineWidth != nil {
		d.LineWidth = *p.LineWidth
	}
	if p.LineStyle != nil {
		d.LineStyle = *p.LineStyle
	}
	if p.ExtendLeft != nil {
		d.ExtendLeft = *p.ExtendLeft
	}
	if p.ExtendRight != nil {
		d.ExtendRight = *p.ExtendRight
	}
	if p.Start != nil {
		v := *p.Start
		d.Start = &v
	}
	if p.End != nil {
		v := *p.End
		d.End = &v
	}
	if p.Points != nil {
		d.Points = append([]PricePoint(nil), p.Points...)
	}
	if p.Text != nil {
		d.Text = *p.Text
	}
	if p.FontSize != nil {
		d.FontSize = *p.FontSize
	}
	if p.FillColor != nil {
		d.FillColor = *p.FillColor
	}
	if p.FillOpacity != nil {
		d.FillOpacity = *p.FillOpacity
	}
}
