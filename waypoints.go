package veloplan

import "github.com/google/uuid"

// WaypointRole tags a waypoint's position within an ordered list.
type WaypointRole string

const (
	RoleStart WaypointRole = "start"
	RoleEnd   WaypointRole = "end"
	RoleVia   WaypointRole = "waypoint"
)

// Waypoint is a user- or system-placed point a route must pass through. It
// is distinct from the dense polyline points of the snapped geometry.
type Waypoint struct {
	ID       string       `json:"id"`
	Position Coordinate   `json:"position"`
	Role     WaypointRole `json:"role"`
	Label    string       `json:"label,omitempty"`
}

// NewWaypoint creates a waypoint with a fresh ID. The role is assigned when
// the waypoint joins a list.
func NewWaypoint(pos Coordinate, label string) Waypoint {
	return Waypoint{ID: uuid.NewString(), Position: pos, Role: RoleVia, Label: label}
}

// WaypointList is an ordered waypoint sequence. Every mutation recomputes
// roles: the first element is always start, the last is end once the list
// has two or more entries, and everything between is a plain waypoint.
type WaypointList struct {
	items []Waypoint
}

// NewWaypointList builds a list from positions, assigning roles.
func NewWaypointList(positions ...Coordinate) *WaypointList {
	l := &WaypointList{}
	for _, p := range positions {
		l.items = append(l.items, NewWaypoint(p, ""))
	}
	l.reassignRoles()
	return l
}

// Len returns the number of waypoints.
func (l *WaypointList) Len() int { return len(l.items) }

// Items returns a copy of the waypoint slice.
func (l *WaypointList) Items() []Waypoint {
	out := make([]Waypoint, len(l.items))
	copy(out, l.items)
	return out
}

// Positions returns the ordered coordinates of all waypoints.
func (l *WaypointList) Positions() []Coordinate {
	out := make([]Coordinate, len(l.items))
	for i, w := range l.items {
		out[i] = w.Position
	}
	return out
}

// Append adds a waypoint at the end of the list.
func (l *WaypointList) Append(w Waypoint) {
	l.items = append(l.items, w)
	l.reassignRoles()
}

// Insert places a waypoint at index i, shifting later entries right.
// Out-of-range indices clamp to the nearest end.
func (l *WaypointList) Insert(i int, w Waypoint) {
	if i < 0 {
		i = 0
	}
	if i > len(l.items) {
		i = len(l.items)
	}
	l.items = append(l.items, Waypoint{})
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = w
	l.reassignRoles()
}

// Remove deletes the waypoint at index i. Out-of-range indices are ignored.
func (l *WaypointList) Remove(i int) {
	if i < 0 || i >= len(l.items) {
		return
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.reassignRoles()
}

// Reverse flips the waypoint order in place.
func (l *WaypointList) Reverse() {
	for i, j := 0, len(l.items)-1; i < j; i, j = i+1, j-1 {
		l.items[i], l.items[j] = l.items[j], l.items[i]
	}
	l.reassignRoles()
}

func (l *WaypointList) reassignRoles() {
	n := len(l.items)
	for i := range l.items {
		switch {
		case i == 0:
			l.items[i].Role = RoleStart
		case i == n-1 && n >= 2:
			l.items[i].Role = RoleEnd
		default:
			l.items[i].Role = RoleVia
		}
	}
}
