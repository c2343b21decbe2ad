package bom

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/stepbom/pkg/kernel"
	"github.com/chazu/stepbom/pkg/kernel/kerneltest"
)

var (
	red   = kernel.RGB{R: 1}
	green = kernel.RGB{G: 1}
	blue  = kernel.RGB{B: 1}
)

func TestResolveColorPriority(t *testing.T) {
	tests := []struct {
		name   string
		colors map[kernel.ColorRole]kernel.RGB
		role   string
		hex    string
	}{
		{"general wins", map[kernel.ColorRole]kernel.RGB{kernel.ColorGeneral: red, kernel.ColorSurface: green, kernel.ColorCurve: blue}, "general", "#ff0000"},
		{"surface before curve", map[kernel.ColorRole]kernel.RGB{kernel.ColorSurface: green, kernel.ColorCurve: blue}, "surface", "#00ff00"},
		{"curve only", map[kernel.ColorRole]kernel.RGB{kernel.ColorCurve: blue}, "curve", "#0000ff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := kerneltest.NewDocument()
			doc.AddRoot(&kerneltest.Node{Entry: "0:1:1:1", Colors: tt.colors})

			rec := ResolveColor(doc.Colors(), kerneltest.Label("0:1:1:1"))
			assert.True(t, rec.HasColor)
			assert.Equal(t, tt.role, rec.Role)
			assert.Equal(t, tt.hex, rec.Hex)
			assert.Equal(t, "0:1:1:1", rec.SourceLabel)
		})
	}
}

func TestResolveColorAbsent(t *testing.T) {
	doc := kerneltest.NewDocument()
	doc.AddRoot(&kerneltest.Node{Entry: "0:1:1:1"})

	rec := ResolveColor(doc.Colors(), kerneltest.Label("0:1:1:1"))
	assert.False(t, rec.HasColor)
	assert.False(t, rec.ExtractionError)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"has_color":false}`, string(data))
}

func TestResolveColorError(t *testing.T) {
	doc := kerneltest.NewDocument()
	doc.AddRoot(&kerneltest.Node{Entry: "0:1:1:1", ColorErr: errors.New("XCAFDoc_ColorTool failure")})

	rec := ResolveColor(doc.Colors(), kerneltest.Label("0:1:1:1"))
	assert.True(t, rec.ExtractionError)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"color_extraction_error":true}`, string(data))

	_, err = lookupColor(doc.Colors(), kerneltest.Label("0:1:1:1"))
	assert.ErrorContains(t, err, "XCAFDoc_ColorTool failure")
}

func TestHex(t *testing.T) {
	tests := []struct {
		c    kernel.RGB
		want string
	}{
		{kernel.RGB{R: 1}, "#ff0000"},
		{kernel.RGB{R: 0.5, G: 0.5, B: 0.5}, "#808080"},
		{kernel.RGB{R: 0.2, G: 0.4, B: 0.6}, "#336699"},
		{kernel.RGB{R: 1.2, G: -0.1}, "#ff0000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Hex(tt.c), "Hex(%v)", tt.c)
	}
}

func TestColorRecordJSON(t *testing.T) {
	rec := newColorRecord(red, kernel.ColorSurface, kerneltest.Label("0:1:1:2"))
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"has_color":true,"rgb":[1,0,0],"hex":"#ff0000","role":"surface","source_label":"0:1:1:2"}`, string(data))

	var back ColorRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)
}
