package models

// UIMetadata describes the console shell: product name, version and navigation
type UIMetadata struct {
	ProductName string    `json:"product_name"`
	Version     string    `json:"version"`
	Navigation  []NavItem `json:"navigation"`
}

// NavItem is one entry of the side navigation
type NavItem struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Icon     string    `json:"icon"`
	Path     string    `json:"path"`
	Children []NavItem `json:"children,omitempty"`
}

// UITab is one tab of a page
type UITab struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// UIIcon maps an icon name to its glyph set
type UIIcon struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// UITheme is a selectable color theme
type UITheme struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Dark    bool              `json:"dark"`
	Palette map[string]string `json:"palette"`
}

// UIColumn is the default definition of a table column
type UIColumn struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Sortable bool   `json:"sortable"`
	Visible  bool   `json:"visible"`
	Width    int    `json:"width,omitempty"`
}
