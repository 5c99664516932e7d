package orchestrator

import (
	"fmt"

	"github.com/smazurov/peqlink/internal/peq"
)

// Plan is what will be written to the device after validation.
type Plan struct {
	Filters  []peq.Filter  `json:"filters"`
	Preamp   float64       `json:"preamp"`
	Warnings []peq.Warning `json:"warnings,omitempty"`
}

// Validate prepares filters for a device with capability c. A nil preamp
// is computed from the filters as supplied, before any correction.
//
// The rules run in a fixed order: truncate to MaxFilters, reset out of
// range frequency and Q, rewrite shelves the device cannot play, check
// pregain support, then pad with the reset filter.
func Validate(c peq.Capability, preamp *float64, filters []peq.Filter) Plan {
	plan := Plan{Filters: append([]peq.Filter(nil), filters...)}
	if preamp != nil {
		plan.Preamp = *preamp
	} else {
		plan.Preamp = peq.AutoPreamp(filters)
	}

	if c.MaxFilters > 0 && len(plan.Filters) > c.MaxFilters {
		logger().Warn("Truncating filters to device limit", "filters", len(plan.Filters), "max", c.MaxFilters)
		plan.Filters = plan.Filters[:c.MaxFilters]
		plan.warn(peq.WarnFiltersTruncated, fmt.Sprintf(
			"This device only supports %d PEQ filters - only first %d will be applied.", c.MaxFilters, c.MaxFilters))
	}

	clamped := 0
	for i := range plan.Filters {
		f := &plan.Filters[i]
		changed := false
		if f.Freq < peq.MinFreq || f.Freq > peq.MaxFreq {
			f.Freq = peq.DefaultFreq
			changed = true
		}
		if f.Q < peq.MinQ || f.Q > peq.MaxQ {
			f.Q = peq.DefaultQ
			changed = true
		}
		if changed {
			clamped++
		}
	}
	if clamped > 0 {
		logger().Info("Reset out of range filter values", "filters", clamped)
		plan.warn(peq.WarnValuesClamped, fmt.Sprintf(
			"%d filter(s) had a frequency or Q outside the supported range and were reset to defaults.", clamped))
	}

	hasShelves := false
	for _, f := range plan.Filters {
		if f.Type.IsShelf() && f.Gain != 0 && !f.Disabled {
			hasShelves = true
			break
		}
	}
	dropShelves := hasShelves && !c.SupportsLSHSFilters
	if dropShelves {
		for i := range plan.Filters {
			f := &plan.Filters[i]
			if f.Type.IsShelf() && f.Gain != 0 && !f.Disabled {
				logger().Info("Converting shelf filter to PK with gain 0", "band", i, "type", f.Type)
				f.Type = peq.Peaking
				f.Gain = 0
			}
		}
	}

	dropPregain := plan.Preamp < 0 && !c.SupportsPregain
	switch {
	case dropShelves && dropPregain:
		plan.warn(peq.WarnShelfAndPregain, "Device doesn't support LS/HS filters and auto pregain - both will be ignored")
	case dropShelves:
		plan.warn(peq.WarnShelfUnsupported, "Device only supports Peak filters - ignoring LS/HS filters")
	case dropPregain:
		plan.warn(peq.WarnPregainIgnored, "Device does not support auto calculated pregain")
	}

	if c.DefaultResetFilter != nil && len(plan.Filters) < c.MaxFilters {
		logger().Debug("Filling missing filters with the reset filter", "from", len(plan.Filters), "to", c.MaxFilters)
		for len(plan.Filters) < c.MaxFilters {
			plan.Filters = append(plan.Filters, *c.DefaultResetFilter)
		}
	}
	return plan
}

func (p *Plan) warn(code, message string) {
	p.Warnings = append(p.Warnings, peq.Warning{Code: code, Message: message})
}
