package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/BradenHooton/giftgate/internal/models"
	"gopkg.in/yaml.v3"
)

// Sites is the static directory of storefront sites
type Sites struct {
	byID map[string]models.Site
}

type sitesFile struct {
	Sites []models.Site `yaml:"sites"`
}

// LoadSites reads the site directory from a YAML file
func LoadSites(path string) (*Sites, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sites file: %w", err)
	}
	return ParseSites(raw)
}

// ParseSites decodes a site directory document:
//
//	sites:
//	  - id: acme
//	    name: Acme Corp
//	    validation_method: email
//	    welcome_page_enabled: true
func ParseSites(raw []byte) (*Sites, error) {
	var doc sitesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse sites file: %w", err)
	}

	sites := &Sites{byID: make(map[string]models.Site, len(doc.Sites))}
	for i, s := range doc.Sites {
		if s.ID == "" {
			return nil, fmt.Errorf("site %d: id is required", i)
		}
		if !s.ValidationMethod.Valid() || s.ValidationMethod == models.MethodMagicLink {
			return nil, fmt.Errorf("site %q: unsupported validation_method %q", s.ID, s.ValidationMethod)
		}
		if _, dup := sites.byID[s.ID]; dup {
			return nil, fmt.Errorf("site %q: duplicate id", s.ID)
		}
		sites.byID[s.ID] = s
	}

	return sites, nil
}

// Site returns the site with the given id
func (s *Sites) Site(id string) (models.Site, bool) {
	site, ok := s.byID[id]
	return site, ok
}

// All returns every site ordered by id
func (s *Sites) All() []models.Site {
	out := make([]models.Site, 0, len(s.byID))
	for _, site := range s.byID {
		out = append(out, site)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
