package models

import "github.com/akmatori/opsconsole/internal/database"

// WidgetLayout is the grid position of a widget
type WidgetLayout struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Widget is one panel of a dashboard
type Widget struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Config database.JSONB `json:"config,omitempty"`
	Layout WidgetLayout   `json:"layout"`
}

// Dashboard is a user-arranged set of widgets
type Dashboard struct {
	Base
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Owner       string   `json:"owner,omitempty"`
	IsDefault   bool     `json:"is_default"`
	Widgets     []Widget `json:"widgets"`
}

// Normalize keeps widgets encoded as an array
func (d *Dashboard) Normalize() {
	if d.Widgets == nil {
		d.Widgets = []Widget{}
	}
}

// ApplyLayout moves the widgets named in positions; unknown ids are ignored.
// It returns the number of widgets moved.
func (d *Dashboard) ApplyLayout(positions map[string]WidgetLayout) int {
	moved := 0
	for i := range d.Widgets {
		if l, ok := positions[d.Widgets[i].ID]; ok {
			d.Widgets[i].Layout = l
			moved++
		}
	}
	return moved
}

// DashboardTemplate is a predefined dashboard
type DashboardTemplate struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Widgets     []Widget `json:"widgets"`
}

// WidgetType describes a widget users can add
type WidgetType struct {
	Type          string       `json:"type"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	DefaultLayout WidgetLayout `json:"default_layout"`
}

// LayoutPreset is a named grid arrangement
type LayoutPreset struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Columns int    `json:"columns"`
	RowH    int    `json:"row_height"`
}
