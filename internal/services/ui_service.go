package services

import (
	"github.com/akmatori/opsconsole/internal/apierr"
	"github.com/akmatori/opsconsole/internal/models"
	"github.com/akmatori/opsconsole/internal/seed"
)

// UIService serves the static console metadata
type UIService struct {
	catalog seed.UICatalog
}

// NewUIService creates a new UIService over catalog
func NewUIService(catalog seed.UICatalog) *UIService {
	return &UIService{catalog: catalog}
}

// Metadata returns the console shell description
func (s *UIService) Metadata() models.UIMetadata {
	return s.catalog.Metadata
}

// Tabs returns the tabs of page
func (s *UIService) Tabs(page string) ([]models.UITab, error) {
	tabs, ok := s.catalog.Tabs[page]
	if !ok {
		return nil, apierr.NotFound("No tabs defined for page %s", page)
	}
	return tabs, nil
}

// Icons returns the icon catalog
func (s *UIService) Icons() []models.UIIcon {
	return s.catalog.Icons
}

// Themes returns the selectable themes
func (s *UIService) Themes() []models.UITheme {
	return s.catalog.Themes
}

// Content returns the static texts of page
func (s *UIService) Content(page string) (map[string]interface{}, error) {
	content, ok := s.catalog.Content[page]
	if !ok {
		return nil, apierr.NotFound("No content defined for page %s", page)
	}
	return content, nil
}

// Columns returns the default column definitions of page
func (s *UIService) Columns(page string) ([]models.UIColumn, error) {
	cols, ok := s.catalog.Columns[page]
	if !ok {
		return nil, apierr.NotFound("No columns defined for page %s", page)
	}
	return cols, nil
}
