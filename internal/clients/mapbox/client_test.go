package mapbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	veloplan "github.com/veloplan/veloplan"
)

func encodePolyline6(coords [][]float64) string {
	return string(polyline6Codec.EncodeCoords(nil, coords))
}

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient("test-token")
	client.baseURL = server.URL
	return client, server
}

func TestMatchToRoads(t *testing.T) {
	// Two points near Denver, encoded as [lat, lng] at precision 6.
	geometry := encodePolyline6([][]float64{{39.74, -104.99}, {39.75, -104.98}})

	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/matching/v5/mapbox/cycling/")
		assert.Equal(t, "25;25", r.URL.Query().Get("radiuses"))
		assert.Equal(t, "polyline6", r.URL.Query().Get("geometries"))

		w.Header().Set("Content-Type", "application/json")
		resp := `{"code":"Ok","matchings":[{"geometry":"` + jsonEscape(geometry) + `","distance":1520,"duration":230,"confidence":0.82}]}`
		w.Write([]byte(resp))
	})
	defer server.Close()

	waypoints := []veloplan.Coordinate{{-104.99, 39.74}, {-104.98, 39.75}}
	res, err := client.MatchToRoads(context.Background(), waypoints, 25, "cycling")
	require.NoError(t, err)

	assert.InDelta(t, 0.82, res.Confidence, 0.001)
	assert.InDelta(t, 1520, res.DistanceMeters, 0.1)
	require.Len(t, res.Coordinates, 2)
	// Decoded geometry comes back as [lon, lat].
	assert.InDelta(t, -104.99, res.Coordinates[0].Lon(), 0.000001)
	assert.InDelta(t, 39.74, res.Coordinates[0].Lat(), 0.000001)
}

func TestMatchToRoadsNoMatch(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NoMatch","matchings":[]}`))
	})
	defer server.Close()

	waypoints := []veloplan.Coordinate{{-104.99, 39.74}, {-104.98, 39.75}}
	_, err := client.MatchToRoads(context.Background(), waypoints, 25, "cycling")
	assert.Error(t, err)
}

func TestRoute(t *testing.T) {
	geometry := encodePolyline6([][]float64{{39.74, -104.99}, {39.745, -104.985}, {39.75, -104.98}})

	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/directions/v5/mapbox/cycling/")
		resp := `{"code":"Ok","routes":[{"geometry":"` + jsonEscape(geometry) + `","distance":1600,"duration":240}]}`
		w.Write([]byte(resp))
	})
	defer server.Close()

	waypoints := []veloplan.Coordinate{{-104.99, 39.74}, {-104.98, 39.75}}
	res, err := client.Route(context.Background(), waypoints, "cycling", veloplan.RoutingOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Coordinates, 3)
	assert.InDelta(t, 1600, res.DistanceMeters, 0.1)
}

func TestRouteExcludesMotorways(t *testing.T) {
	geometry := encodePolyline6([][]float64{{39.74, -104.99}, {39.75, -104.98}})

	var gotExclude string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotExclude = r.URL.Query().Get("exclude")
		resp := `{"code":"Ok","routes":[{"geometry":"` + jsonEscape(geometry) + `","distance":1600,"duration":240}]}`
		w.Write([]byte(resp))
	})
	defer server.Close()

	waypoints := []veloplan.Coordinate{{-104.99, 39.74}, {-104.98, 39.75}}
	_, err := client.Route(context.Background(), waypoints, "cycling", veloplan.RoutingOptions{AvoidMotorways: true})
	require.NoError(t, err)
	assert.Equal(t, "motorway", gotExclude)
}

func TestUnauthorized(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer server.Close()

	waypoints := []veloplan.Coordinate{{-104.99, 39.74}, {-104.98, 39.75}}
	_, err := client.Route(context.Background(), waypoints, "cycling", veloplan.RoutingOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid access token")
}

func TestCoordinatePathOrder(t *testing.T) {
	path := coordinatePath([]veloplan.Coordinate{{-104.99, 39.74}, {-104.98, 39.75}})
	assert.Equal(t, "-104.990000,39.740000;-104.980000,39.750000", path)
}

// jsonEscape escapes backslashes and quotes in encoded polylines, which use
// the full printable ASCII range.
func jsonEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '"':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
