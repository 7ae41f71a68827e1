package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Catalog is an ordered, validated list of features.
type Catalog struct {
	features []*Feature
	byID     map[string]*Feature
}

// New validates features and builds a Catalog preserving their order.
func New(features []Feature) (*Catalog, error) {
	if err := Validate(features); err != nil {
		return nil, err
	}

	c := &Catalog{
		features: make([]*Feature, 0, len(features)),
		byID:     make(map[string]*Feature, len(features)),
	}
	for i := range features {
		f := features[i]
		f.Toggles = append([]Toggle(nil), f.Toggles...)
		c.features = append(c.features, &f)
		c.byID[f.ID] = &f
	}
	return c, nil
}

// Validate reports every construction-time problem in features: empty or
// duplicate ids, features without toggles, and toggles missing required
// fields.
func Validate(features []Feature) error {
	var errs []error
	seen := make(map[string]bool, len(features))

	for i, f := range features {
		id := strings.TrimSpace(f.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("feature #%d: empty id", i))
			continue
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("feature %q: duplicate id", id))
		}
		seen[id] = true

		if len(f.Toggles) == 0 {
			errs = append(errs, fmt.Errorf("feature %q: no toggle points", id))
			continue
		}

		for j, t := range f.Toggles {
			switch t := t.(type) {
			case RegistryToggle:
				if t.Path == "" || t.Name == "" {
					errs = append(errs, fmt.Errorf("feature %q toggle #%d: registry path and value name are required", id, j))
				}
				if t.EnabledValue == t.DisabledValue {
					errs = append(errs, fmt.Errorf("feature %q toggle #%d: enabled and disabled values are both %d", id, j, t.EnabledValue))
				}
			case PackageToggle:
				if strings.TrimSpace(t.Identifier) == "" {
					errs = append(errs, fmt.Errorf("feature %q toggle #%d: empty package identifier", id, j))
				}
			case OptionalFeatureToggle:
				if strings.TrimSpace(t.Name) == "" {
					errs = append(errs, fmt.Errorf("feature %q toggle #%d: empty optional feature name", id, j))
				}
			case nil:
				errs = append(errs, fmt.Errorf("feature %q toggle #%d: nil toggle", id, j))
			default:
				errs = append(errs, fmt.Errorf("feature %q toggle #%d: unsupported toggle %T", id, j, t))
			}
		}
	}

	return errors.Join(errs...)
}

// Features returns the catalog entries in declaration order. The returned
// features must not be modified.
func (c *Catalog) Features() []*Feature {
	out := make([]*Feature, len(c.features))
	copy(out, c.features)
	return out
}

// Lookup returns the feature with the given id.
func (c *Catalog) Lookup(id string) (*Feature, bool) {
	f, ok := c.byID[id]
	return f, ok
}

// IDs returns all feature ids sorted alphabetically.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of features.
func (c *Catalog) Len() int {
	return len(c.features)
}
