// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKind_Valid(t *testing.T) {
	for _, k := range []ObjectKind{KindWall, KindZone, KindFurniture, KindLabel, KindImage} {
		assert.True(t, k.Valid(), "%s", k)
	}
	assert.False(t, ObjectKind("spaceship").Valid())
	assert.False(t, ObjectKind("").Valid())
}

func TestRenderState_Clone(t *testing.T) {
	orig := RenderState{X: 1, Y: 2, ScaleX: 1.5, Extra: map[string]float64{"opacity": 0.8}}
	cp := orig.Clone()

	cp.Extra["opacity"] = 0.1
	assert.Equal(t, 0.8, orig.Extra["opacity"], "clone must not share the Extra map")

	empty := RenderState{}
	assert.Nil(t, empty.Clone().Extra)
}

func TestCloneObjects(t *testing.T) {
	orig := []Object{{ID: "a", Kind: KindWall, Name: "north wall"}}
	cp := CloneObjects(orig)

	cp[0].Name = "changed"
	assert.Equal(t, "north wall", orig[0].Name)

	assert.Nil(t, CloneObjects(nil))
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	doc := Document{
		Name:          "flat",
		WidthCM:       500,
		HeightCM:      350,
		BackgroundRef: "img-floorplan",
		Objects: []Object{
			{ID: NewObjectID(), Kind: KindFurniture, Name: "Sofa", X: 40, Y: 60, W: 220, H: 90, Rotation: 90, Color: "#888"},
			{ID: NewObjectID(), Kind: KindImage, ImageRef: "img-rug"},
		},
	}

	data, err := json.Marshal(&doc)
	require.NoError(t, err)

	var got Document
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, doc, got)
}

func TestNewObjectID_Unique(t *testing.T) {
	a := NewObjectID()
	b := NewObjectID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
