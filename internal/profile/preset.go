package profile

import (
	"github.com/blackwell-systems/aiprune/internal/catalog"
)

// Preset is a built-in profile. Either All is set, applying one status to
// every feature, or Explicit lists individual features.
type Preset struct {
	ID          string
	Name        string
	Description string
	All         catalog.Status
	Explicit    Desired
}

var presets = []Preset{
	{
		ID:          "privacy_max",
		Name:        "Maximum Privacy (Disable All)",
		Description: "Disables every AI feature",
		All:         catalog.StatusDisabled,
	},
	{
		ID:          "balanced",
		Name:        "Balanced (Keep Search)",
		Description: "Disables Copilot, Recall and AI Explorer but keeps search features",
		Explicit: Desired{
			"copilot":     catalog.StatusDisabled,
			"recall":      catalog.StatusDisabled,
			"ai_explorer": catalog.StatusDisabled,
			"bing_search": catalog.StatusEnabled,
			"web_search":  catalog.StatusEnabled,
		},
	},
	{
		ID:          "reset",
		Name:        "Reset to Defaults (Enable All)",
		Description: "Re-enables every AI feature, restoring the Windows defaults",
		All:         catalog.StatusEnabled,
	},
}

// Presets returns the built-in presets in display order.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// LookupPreset finds a preset by id.
func LookupPreset(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Resolve expands the preset against the given features.
func (p Preset) Resolve(features []*catalog.Feature) Desired {
	d := make(Desired)
	if p.All != "" {
		for _, f := range features {
			d[f.ID] = p.All
		}
		return d
	}
	for id, st := range p.Explicit {
		d[id] = st
	}
	return d
}

// Action is one change needed to reach a desired profile.
type Action struct {
	Feature *catalog.Feature
	Enable  bool
}

// Plan lists the enable and disable calls that move states to desired, in
// catalog order. Features already in the desired state are skipped, as
// are not-installed features asked to be disabled. Ids in desired that
// match no state are ignored.
func Plan(states []*catalog.State, desired Desired) []Action {
	var actions []Action
	for _, st := range states {
		want, ok := desired[st.ID()]
		if !ok || want == st.Status {
			continue
		}
		switch want {
		case catalog.StatusDisabled:
			if st.Status == catalog.StatusNotInstalled {
				continue
			}
			actions = append(actions, Action{Feature: st.Feature, Enable: false})
		case catalog.StatusEnabled:
			actions = append(actions, Action{Feature: st.Feature, Enable: true})
		}
	}
	return actions
}
