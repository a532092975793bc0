package veloplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertRoles checks the role invariant: first element is start, last is end
// once the list holds two or more waypoints, everything else is a plain
// waypoint.
func assertRoles(t *testing.T, l *WaypointList) {
	t.Helper()
	items := l.Items()
	for i, w := range items {
		switch {
		case i == 0:
			assert.Equal(t, RoleStart, w.Role, "first waypoint must be start")
		case i == len(items)-1:
			assert.Equal(t, RoleEnd, w.Role, "last waypoint must be end")
		default:
			assert.Equal(t, RoleVia, w.Role)
		}
	}
}

func TestWaypointList_RolesAfterMutations(t *testing.T) {
	l := NewWaypointList(
		Coordinate{-104.99, 39.74},
		Coordinate{-104.95, 39.76},
		Coordinate{-104.90, 39.78},
	)
	assertRoles(t, l)

	l.Append(NewWaypoint(Coordinate{-104.85, 39.80}, "cafe"))
	assertRoles(t, l)
	assert.Equal(t, 4, l.Len())

	l.Insert(2, NewWaypoint(Coordinate{-104.93, 39.77}, ""))
	assertRoles(t, l)
	assert.Equal(t, 5, l.Len())

	l.Remove(0) // removing the start promotes the next waypoint
	assertRoles(t, l)
	assert.Equal(t, 4, l.Len())

	l.Reverse()
	assertRoles(t, l)

	// Remove down to a single waypoint: it stays the start
	for l.Len() > 1 {
		l.Remove(l.Len() - 1)
	}
	require.Equal(t, 1, l.Len())
	assert.Equal(t, RoleStart, l.Items()[0].Role)
}

func TestWaypointList_InsertClamps(t *testing.T) {
	l := NewWaypointList(Coordinate{0, 0}, Coordinate{1, 1})
	l.Insert(-5, NewWaypoint(Coordinate{2, 2}, ""))
	l.Insert(99, NewWaypoint(Coordinate{3, 3}, ""))
	assert.Equal(t, 4, l.Len())
	assertRoles(t, l)
	assert.Equal(t, Coordinate{2, 2}, l.Items()[0].Position)
	assert.Equal(t, Coordinate{3, 3}, l.Items()[3].Position)
}

func TestWaypointList_UniqueIDs(t *testing.T) {
	l := NewWaypointList(Coordinate{0, 0}, Coordinate{1, 1}, Coordinate{2, 2})
	seen := map[string]bool{}
	for _, w := range l.Items() {
		assert.NotEmpty(t, w.ID)
		assert.False(t, seen[w.ID], "waypoint IDs must be unique")
		seen[w.ID] = true
	}
}

func TestGenerateRequest_Validate(t *testing.T) {
	valid := GenerateRequest{
		Start:             Coordinate{-104.99, 39.74},
		TimeBudgetMinutes: 90,
		TrainingGoal:      GoalEndurance,
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.TimeBudgetMinutes = 10
	assert.Error(t, bad.Validate())

	bad = valid
	bad.TimeBudgetMinutes = 300
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Start = Coordinate{-200, 95}
	assert.Error(t, bad.Validate())

	bad = valid
	bad.TrainingGoal = "crit-racing"
	assert.Error(t, bad.Validate())
}

func TestGenerateRequest_TargetDistance(t *testing.T) {
	req := GenerateRequest{TimeBudgetMinutes: 90, TrainingGoal: GoalEndurance}
	assert.InDelta(t, 37.5, req.TargetDistanceKm(), 0.001)

	req.TrainingGoal = GoalRecovery
	assert.InDelta(t, 30.0, req.TargetDistanceKm(), 0.001)
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	assert.Equal(t, "medium", p.PreferredDistance.Bucket)
	assert.Empty(t, p.PreferredDirections)
	assert.Zero(t, p.Confidence)
	assert.Greater(t, p.ElevationToleranceM, 0.0)
}
