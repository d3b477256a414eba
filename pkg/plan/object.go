// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package plan defines the editable-object model for a space plan.
//
// A plan is a flat list of objects (walls, zones, furniture, labels,
// images) plus an optional background image. Objects carry only
// serializable state; large binary payloads are referenced by image-pool
// fingerprint, never embedded. The history engine snapshots values from
// this package, so everything here is treated as immutable once built.
package plan

import (
	"github.com/google/uuid"
)

// ObjectKind identifies what an object on the canvas represents.
type ObjectKind string

// Supported object kinds.
const (
	KindWall      ObjectKind = "wall"
	KindZone      ObjectKind = "zone"
	KindFurniture ObjectKind = "furniture"
	KindLabel     ObjectKind = "label"
	KindImage     ObjectKind = "image"
)

// Valid reports whether k is one of the supported kinds.
func (k ObjectKind) Valid() bool {
	switch k {
	case KindWall, KindZone, KindFurniture, KindLabel, KindImage:
		return true
	}
	return false
}

// Object is one editable element of a plan.
//
// Objects are value types. Geometry is in centimeters in plan space;
// the renderer keeps its own transient view of position and scale in
// RenderState. ImageRef is set only for KindImage and holds an image
// pool fingerprint, not pixel data.
type Object struct {
	// ID uniquely identifies the object within a document.
	ID string `json:"id"`

	// Kind is the object type.
	Kind ObjectKind `json:"kind"`

	// Name is the user-visible label, e.g. "Sofa" or "Kitchen".
	Name string `json:"name,omitempty"`

	// X, Y are the plan-space position of the object origin, in cm.
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// W, H are the plan-space extents, in cm.
	W float64 `json:"w"`
	H float64 `json:"h"`

	// Rotation is in degrees, clockwise.
	Rotation float64 `json:"rotation,omitempty"`

	// Color is a CSS-style color string.
	Color string `json:"color,omitempty"`

	// Label is free-form annotation text (KindLabel primarily).
	Label string `json:"label,omitempty"`

	// ImageRef is the image pool fingerprint for KindImage objects.
	ImageRef string `json:"imageRef,omitempty"`
}

// RenderState is the renderer-side transient state for one object.
//
// It captures what the canvas needs to rebuild the visual representation
// of an object without re-deriving it: position, scale, rotation, and
// any type-specific numeric fields in Extra.
type RenderState struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Rotation float64 `json:"rotation"`

	// Extra holds type-specific numeric fields, e.g. "fontSize" for
	// labels or "opacity" for zones. May be nil.
	Extra map[string]float64 `json:"extra,omitempty"`
}

// Clone returns a deep copy of the render state.
func (r RenderState) Clone() RenderState {
	out := r
	if r.Extra != nil {
		out.Extra = make(map[string]float64, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Document is the serializable whole-project state.
//
// This is what the (out of core scope) project save/load path persists.
// BackgroundRef, like Object.ImageRef, is an image pool fingerprint.
type Document struct {
	// Name is the project name.
	Name string `json:"name"`

	// WidthCM, HeightCM are the plan bounds in cm.
	WidthCM  float64 `json:"widthCm"`
	HeightCM float64 `json:"heightCm"`

	// BackgroundRef is the fingerprint of the background image, if any.
	BackgroundRef string `json:"backgroundRef,omitempty"`

	// Objects are the editable elements, in z-order (back to front).
	Objects []Object `json:"objects"`
}

// CloneObjects returns a copy of the object slice.
//
// Object is a value type, so a shallow slice copy is a full copy.
func CloneObjects(objects []Object) []Object {
	if objects == nil {
		return nil
	}
	out := make([]Object, len(objects))
	copy(out, objects)
	return out
}

// NewObjectID returns a fresh unique object ID.
func NewObjectID() string {
	return uuid.NewString()
}
