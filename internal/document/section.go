// section.go
//
// LUVNEST, a love page builder and viewer service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of luvnest.
// luvnest is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// luvnest is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with luvnest.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/localnerve/luvnest/internal/types"
)

// Section is one block of a love page. Type is fixed at creation and Data
// always holds the payload shape for that type.
type Section struct {
	ID      string
	Type    SectionType
	Visible bool
	Order   int
	Data    SectionData
}

type sectionJSON struct {
	ID      string          `json:"id"`
	Type    SectionType     `json:"type"`
	Visible *bool           `json:"visible,omitempty"`
	Order   int             `json:"order"`
	Data    json.RawMessage `json:"data"`
}

// MarshalJSON writes the persisted section shape.
func (s Section) MarshalJSON() ([]byte, error) {
	if s.Data == nil {
		return nil, fmt.Errorf("section %s has no data", s.ID)
	}
	if s.Data.Type() != s.Type {
		return nil, fmt.Errorf("section %s of type %s carries %s data", s.ID, s.Type, s.Data.Type())
	}
	data, err := json.Marshal(s.Data)
	if err != nil {
		return nil, err
	}
	visible := s.Visible
	return json.Marshal(sectionJSON{
		ID:      s.ID,
		Type:    s.Type,
		Visible: &visible,
		Order:   s.Order,
		Data:    data,
	})
}

// UnmarshalJSON decodes data strictly into the shape dictated by type.
// A missing visible flag reads as true.
func (s *Section) UnmarshalJSON(b []byte) error {
	var raw sectionJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return types.ValidationErrorf("section: %v", err)
	}
	if raw.ID == "" {
		return types.ValidationErrorf("section is missing an id")
	}
	data, err := DecodeData(raw.Type, raw.Data)
	if err != nil {
		return err
	}
	s.ID = raw.ID
	s.Type = raw.Type
	s.Visible = raw.Visible == nil || *raw.Visible
	s.Order = raw.Order
	s.Data = data
	return nil
}

// DecodeData decodes and validates a payload for section type t. Fields that
// do not belong to t are rejected.
func DecodeData(t SectionType, raw []byte) (SectionData, error) {
	d, ok := newData(t)
	if !ok {
		return nil, types.ValidationErrorf("unknown section type %q", t)
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, types.ValidationErrorf("%s section has no data", t)
	}
	if err := decodeStrict(raw, d); err != nil {
		return nil, types.ValidationErrorf("%s data: %v", t, err)
	}
	normalize(d, false)
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func decodeStrict(raw []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
