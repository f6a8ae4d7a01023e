package document

import (
	"encoding/json"
	"sort"

	"github.com/localnerve/luvnest/internal/types"
)

// The functions below never modify their input slice. Unknown ids are
// silent no-ops that return an unchanged copy.

// ReindexOrder returns a copy renumbered 0..N-1 following array sequence.
func ReindexOrder(sections []Section) []Section {
	out := cloneList(sections)
	for i := range out {
		out[i].Order = i
	}
	return out
}

// SortByOrder returns a copy sorted by ascending order.
func SortByOrder(sections []Section) []Section {
	out := cloneList(sections)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// VisibleSections returns what a viewer sees: the visible sections sorted
// by order. Hidden sections are dropped along with their data.
func VisibleSections(sections []Section) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range SortByOrder(sections) {
		if s.Visible {
			out = append(out, s)
		}
	}
	return out
}

// HasType reports whether any section is of type t.
func HasType(sections []Section, t SectionType) bool {
	for _, s := range sections {
		if s.Type == t {
			return true
		}
	}
	return false
}

// IndexOf returns the position of the section with id, or -1.
func IndexOf(sections []Section, id string) int {
	for i, s := range sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// AddSection appends a default section of type t with a fresh id. A second
// hero is rejected with ErrDuplicateHero.
func AddSection(sections []Section, t SectionType) ([]Section, Section, error) {
	if !t.Valid() {
		return cloneList(sections), Section{}, types.ValidationErrorf("unknown section type %q", t)
	}
	if t == TypeHero && HasType(sections, TypeHero) {
		return cloneList(sections), Section{}, types.ErrDuplicateHero
	}
	s := Section{
		ID:      NewID(),
		Type:    t,
		Visible: true,
		Order:   len(sections),
		Data:    DefaultData(t),
	}
	out := append(cloneList(sections), s)
	return ReindexOrder(out), s, nil
}

// RemoveSection drops the section with id and reindexes the rest.
func RemoveSection(sections []Section, id string) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return ReindexOrder(out)
}

// UpdateSection shallow merges partial into the data of the section with id.
// Keys that do not belong to the section's type fail validation and leave
// the list unchanged. Id, type, order and visibility are never touched.
func UpdateSection(sections []Section, id string, partial map[string]json.RawMessage) ([]Section, error) {
	out := cloneList(sections)
	i := IndexOf(out, id)
	if i < 0 {
		return out, nil
	}
	merged, err := mergeData(out[i].Data, partial)
	if err != nil {
		return cloneList(sections), err
	}
	out[i].Data = merged
	return out, nil
}

// ToggleVisibility flips the visible flag of the section with id.
func ToggleVisibility(sections []Section, id string) []Section {
	out := cloneList(sections)
	if i := IndexOf(out, id); i >= 0 {
		out[i].Visible = !out[i].Visible
	}
	return out
}

// ReorderSections moves the section at activeID to the position held by
// overID and reindexes the list.
func ReorderSections(sections []Section, activeID, overID string) []Section {
	out := cloneList(sections)
	from, to := IndexOf(out, activeID), IndexOf(out, overID)
	if from < 0 || to < 0 || from == to {
		return out
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]Section{moved}, out[to:]...)...)
	return ReindexOrder(out)
}

func mergeData(current SectionData, partial map[string]json.RawMessage) (SectionData, error) {
	b, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	for k, v := range partial {
		fields[k] = v
	}
	b, err = json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	d, _ := newData(current.Type())
	if err := decodeStrict(b, d); err != nil {
		return nil, types.ValidationErrorf("%s data: %v", current.Type(), err)
	}
	normalize(d, true)
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func cloneList(sections []Section) []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}
