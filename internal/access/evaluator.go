// evaluator.go
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

// Package access decides what a viewer may see of a love page.
package access

import (
	"time"

	"github.com/localnerve/luvnest/internal/document"
)

// State is the outcome of evaluating a page for a viewer.
type State string

const (
	NotFound       State = "not-found"
	Unpublished    State = "unpublished"
	Expired        State = "expired"
	TimeLocked     State = "time-locked"
	PasswordLocked State = "password-locked"
	Visible        State = "visible"
)

// Input is everything the evaluation depends on besides the current time.
type Input struct {
	Found             bool
	IsPublished       bool
	PrivacyMode       document.PrivacyMode
	UnlockAt          *time.Time
	ExpiresAt         *time.Time
	PasswordProtected bool
	// SessionUnlocked is set when the viewer presents a valid unlock token.
	SessionUnlocked bool
}

// Decision is the evaluated state. Unlocked marks visibility granted by an
// earlier password unlock rather than by the page being open.
type Decision struct {
	State    State `json:"state"`
	Unlocked bool  `json:"unlocked,omitempty"`
}

// Evaluate applies the gates in order; the first match wins.
func Evaluate(in Input, now time.Time) Decision {
	switch {
	case !in.Found:
		return Decision{State: NotFound}
	case !in.IsPublished:
		return Decision{State: Unpublished}
	case in.ExpiresAt != nil && now.After(*in.ExpiresAt):
		return Decision{State: Expired}
	case in.PrivacyMode == document.PrivacyTimeLocked && in.UnlockAt != nil && now.Before(*in.UnlockAt):
		return Decision{State: TimeLocked}
	case in.PrivacyMode == document.PrivacyPassword && in.PasswordProtected:
		if in.SessionUnlocked {
			return Decision{State: Visible, Unlocked: true}
		}
		return Decision{State: PasswordLocked}
	}
	return Decision{State: Visible}
}

// Visible reports whether content may be returned.
func (d Decision) Visible() bool {
	return d.State == Visible
}

// ShouldCountView reports whether a load with this decision counts as a
// view. Loads that ride an unlock token were already counted when the
// password was accepted, and owners never count.
func ShouldCountView(d Decision, viewerIsOwner bool) bool {
	return d.State == Visible && !d.Unlocked && !viewerIsOwner
}
