package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxPackFileSize bounds a single pack file. Packs are hand-authored YAML;
// anything larger than this is a mistake, not a policy.
const maxPackFileSize = 10 * 1024 * 1024

// Pack is a versioned plugging-policy document set: the base pack plus any
// district/county/field overlay fragments found alongside it. A Pack is
// immutable once loaded; resolution merges copies, never the originals.
type Pack struct {
	PolicyID     string
	Version      string
	Jurisdiction string

	// Base is the statewide layer: requirements, cement_class, citations,
	// preferences.
	Base Tree

	// DistrictOverlays holds inline district stubs from the base document,
	// keyed by normalized district code.
	DistrictOverlays map[string]Tree

	// CountyOverlays holds inline county stubs keyed "{district}__{county}".
	CountyOverlays map[string]Tree

	// FieldOverlays holds pack-level field fragments keyed by normalized
	// field name.
	FieldOverlays map[string]Tree

	// districtFiles are external "{district}__auto.yml" overlays.
	districtFiles map[string]Tree

	// countyFiles are external "{district}__{county}.yml" overlays,
	// district -> county -> tree.
	countyFiles map[string]map[string]Tree

	dir      string
	baseFile string
}

// yamlPack is the intermediate decode target for the base pack document.
type yamlPack struct {
	PolicyID         string          `yaml:"policy_id"`
	Version          string          `yaml:"version"`
	Jurisdiction     string          `yaml:"jurisdiction"`
	Base             Tree            `yaml:"base"`
	DistrictOverlays map[string]Tree `yaml:"district_overlays"`
	CountyOverlays   map[string]Tree `yaml:"county_overlays"`
	FieldOverlays    map[string]Tree `yaml:"field_overlays"`
}

// LoadPack loads the base pack document and every overlay fragment file in
// its directory. Malformed YAML anywhere in the pack is fatal: a broken pack
// is a deployment error, and resolving against half a pack would silently
// produce wrong plans. All problems found are accumulated and returned
// together as an *ErrorList.
func LoadPack(basePath string) (*Pack, error) {
	errs := NewErrorList()

	doc, err := loadPackFile(basePath)
	if err != nil {
		return nil, err
	}

	var raw yamlPack
	if err := doc.Decode(&raw); err != nil {
		return nil, &PackError{
			Type:       ErrorTypeSyntax,
			Message:    fmt.Sprintf("base pack decode failed: %v", err),
			File:       basePath,
			Suggestion: "check the base pack against the documented schema",
		}
	}

	if raw.PolicyID == "" {
		errs.Add(&PackError{
			Type:       ErrorTypeStructural,
			Message:    "missing required field: policy_id",
			File:       basePath,
			Suggestion: "every pack must carry a stable policy_id",
		})
	}
	if raw.Version == "" {
		errs.Add(&PackError{
			Type:       ErrorTypeStructural,
			Message:    "missing required field: version",
			File:       basePath,
			Suggestion: "pack reloads key off the version field; set one",
		})
	}
	if raw.Base == nil {
		errs.Add(&PackError{
			Type:    ErrorTypeStructural,
			Message: "missing required section: base",
			File:    basePath,
		})
	}

	p := &Pack{
		PolicyID:         raw.PolicyID,
		Version:          raw.Version,
		Jurisdiction:     raw.Jurisdiction,
		Base:             raw.Base,
		DistrictOverlays: make(map[string]Tree),
		CountyOverlays:   make(map[string]Tree),
		FieldOverlays:    make(map[string]Tree),
		districtFiles:    make(map[string]Tree),
		countyFiles:      make(map[string]map[string]Tree),
		dir:              filepath.Dir(basePath),
		baseFile:         basePath,
	}

	for code, tree := range raw.DistrictOverlays {
		p.DistrictOverlays[NormalizeDistrict(code)] = tree
	}
	for key, tree := range raw.CountyOverlays {
		p.CountyOverlays[normalizeOverlayKey(key)] = tree
	}
	for name, tree := range raw.FieldOverlays {
		p.FieldOverlays[NormalizeFieldName(name)] = tree
	}

	if err := p.loadOverlayFiles(errs); err != nil {
		return nil, err
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return p, nil
}

// loadOverlayFiles scans the pack directory for "{district}__auto.yml" and
// "{district}__{county}.yml" fragments.
func (p *Pack) loadOverlayFiles(errs *ErrorList) error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return &PackError{
			Type:    ErrorTypeIO,
			Message: fmt.Sprintf("failed to read pack directory: %v", err),
			File:    p.dir,
		}
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yml") || !strings.Contains(name, "__") {
			continue
		}

		stem := strings.TrimSuffix(name, ".yml")
		parts := strings.SplitN(stem, "__", 2)
		district := NormalizeDistrict(parts[0])
		scope := strings.ToLower(parts[1])

		path := filepath.Join(p.dir, name)
		doc, err := loadPackFile(path)
		if err != nil {
			if pe, ok := err.(*PackError); ok {
				errs.Add(pe)
				continue
			}
			return err
		}

		var tree Tree
		if err := doc.Decode(&tree); err != nil {
			errs.Add(&PackError{
				Type:       ErrorTypeSyntax,
				Message:    fmt.Sprintf("overlay decode failed: %v", err),
				File:       path,
				Suggestion: "overlay fragments must be a YAML mapping",
			})
			continue
		}

		if scope == "auto" {
			p.districtFiles[district] = tree
			continue
		}
		county := NormalizeCounty(scope)
		if p.countyFiles[district] == nil {
			p.countyFiles[district] = make(map[string]Tree)
		}
		p.countyFiles[district][county] = tree
	}

	return nil
}

// loadPackFile reads and parses one YAML file into a node, enforcing the
// pack size limit.
func loadPackFile(path string) (*yaml.Node, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &PackError{
			Type:    ErrorTypeIO,
			Message: fmt.Sprintf("failed to access file: %v", err),
			File:    path,
		}
	}
	if info.Size() > maxPackFileSize {
		return nil, &PackError{
			Type:    ErrorTypeIO,
			Message: fmt.Sprintf("file size %d exceeds maximum %d bytes", info.Size(), maxPackFileSize),
			File:    path,
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PackError{
			Type:    ErrorTypeIO,
			Message: fmt.Sprintf("failed to read file: %v", err),
			File:    path,
		}
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &PackError{
			Type:       ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			File:       path,
			Suggestion: "check YAML syntax (indentation, colons, quotes)",
		}
	}

	return &node, nil
}

// DistrictStub returns the inline district overlay from the base document,
// if any.
func (p *Pack) DistrictStub(district string) (Tree, bool) {
	t, ok := p.DistrictOverlays[NormalizeDistrict(district)]
	return t, ok
}

// DistrictFile returns the external "{district}__auto.yml" overlay, if any.
func (p *Pack) DistrictFile(district string) (Tree, bool) {
	t, ok := p.districtFiles[NormalizeDistrict(district)]
	return t, ok
}

// CountyStub returns the inline county overlay keyed
// "{district}__{county}", if any.
func (p *Pack) CountyStub(district, county string) (Tree, bool) {
	key := NormalizeDistrict(district) + "__" + NormalizeCounty(county)
	t, ok := p.CountyOverlays[key]
	return t, ok
}

// CountyFile returns the external "{district}__{county}.yml" overlay, if any.
func (p *Pack) CountyFile(district, county string) (Tree, bool) {
	counties, ok := p.countyFiles[NormalizeDistrict(district)]
	if !ok {
		return nil, false
	}
	t, ok := counties[NormalizeCounty(county)]
	return t, ok
}

// FieldOverlay returns the pack-level field fragment for a field name, if any.
func (p *Pack) FieldOverlay(field string) (Tree, bool) {
	t, ok := p.FieldOverlays[NormalizeFieldName(field)]
	return t, ok
}

// Districts returns the sorted set of districts that carry any overlay,
// inline or external.
func (p *Pack) Districts() []string {
	set := make(map[string]struct{})
	for d := range p.DistrictOverlays {
		set[d] = struct{}{}
	}
	for d := range p.districtFiles {
		set[d] = struct{}{}
	}
	for d := range p.countyFiles {
		set[d] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// DistrictCounties returns the sorted set of counties that carry any overlay
// configuration for a district: external county files, inline county stubs,
// and "counties" keys inside the district overlay.
func (p *Pack) DistrictCounties(district string) []string {
	d := NormalizeDistrict(district)
	set := make(map[string]struct{})

	for county := range p.countyFiles[d] {
		set[county] = struct{}{}
	}
	for key := range p.CountyOverlays {
		if strings.HasPrefix(key, d+"__") {
			set[strings.TrimPrefix(key, d+"__")] = struct{}{}
		}
	}
	for _, tree := range []Tree{p.DistrictOverlays[d], p.districtFiles[d]} {
		if tree == nil {
			continue
		}
		if counties, ok := asTree(tree["counties"]); ok {
			for county := range counties {
				set[NormalizeCounty(county)] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(set))
	for county := range set {
		out = append(out, county)
	}
	sort.Strings(out)
	return out
}

// countyTree returns the merged view of a county's own overlay (file first,
// falling back to the district overlay's counties.{county} sub-key) without
// applying it to any base. Used by field resolution to inspect a county's
// configuration.
func (p *Pack) countyTree(district, county string) (Tree, bool) {
	if t, ok := p.CountyFile(district, county); ok {
		return t, true
	}
	d := NormalizeDistrict(district)
	c := NormalizeCounty(county)
	for _, tree := range []Tree{p.districtFiles[d], p.DistrictOverlays[d]} {
		if tree == nil {
			continue
		}
		if counties, ok := asTree(tree["counties"]); ok {
			if t, ok := asTree(counties[c]); ok {
				return t, true
			}
		}
	}
	if t, ok := p.CountyStub(district, county); ok {
		return t, true
	}
	return nil, false
}

func normalizeOverlayKey(key string) string {
	parts := strings.SplitN(key, "__", 2)
	if len(parts) != 2 {
		return strings.ToLower(key)
	}
	return NormalizeDistrict(parts[0]) + "__" + NormalizeCounty(parts[1])
}
