package idox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygonQueryURL(t *testing.T) {
	got := PolygonQueryURL("http://gis.test/query", "QX1")
	assert.Equal(t, "http://gis.test/query?f=geojson&returnGeometry=true&outFields=*&outSR=4326&where=KEYVAL%3D%27QX1%27", got)
}

func TestParsePolygon(t *testing.T) {
	const feature = `{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,51],[0.1,51],[0.1,51.1],[0,51]]]},"properties":{"KEYVAL":"QX1","REFVAL":"24/1234/FUL"}}`

	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "null features", body: `{"features":null}`, wantErr: ErrNoFeatures},
		{name: "empty features", body: `{"type":"FeatureCollection","features":[]}`, wantErr: ErrNoFeatures},
		{name: "no geometry", body: `{"features":[{"geometry":null,"properties":{"KEYVAL":"QX1"}}]}`, wantErr: ErrNoGeometry},
		{name: "no properties", body: `{"features":[{"geometry":{"type":"Point"},"properties":null}]}`, wantErr: ErrNoProperties},
		{name: "no keyval", body: `{"features":[{"geometry":{"type":"Point"},"properties":{"OTHER":1}}]}`, wantErr: ErrNoKeyVal},
		{name: "keyval mismatch", body: `{"features":[{"geometry":{"type":"Point"},"properties":{"KEYVAL":"ZZ9"}}]}`, wantErr: ErrKeyValMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePolygon([]byte(tt.body), "QX1", "http://gis.test/query", "westminster", "24/1234/FUL")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, p)
		})
	}

	t.Run("match", func(t *testing.T) {
		body := `{"type":"FeatureCollection","features":[` + feature + `]}`
		p, err := ParsePolygon([]byte(body), "QX1", "http://gis.test/query", "westminster", "24/1234/FUL")
		require.NoError(t, err)
		assert.Equal(t, "westminster", p.LPA)
		assert.Equal(t, "24/1234/FUL", p.Reference)
		assert.Equal(t, "http://gis.test/query", p.MetaSourceURL)
		assert.JSONEq(t, feature, p.PolygonGeoJSON)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParsePolygon([]byte("<html>"), "QX1", "", "", "")
		assert.Error(t, err)
	})
}

func TestPolygonRecord(t *testing.T) {
	p := &PlanningApplicationPolygon{MetaSourceURL: "u", LPA: "l", Reference: "r", PolygonGeoJSON: "{}"}
	assert.Equal(t, "planning_application_polygons", p.TableName())
	assert.Len(t, p.Values(), len(p.Columns()))
}
