package geometry

import (
	"github.com/df07/go-weekend-raytracer/pkg/core"
	"github.com/df07/go-weekend-raytracer/pkg/material"
)

// Shape interface for objects that can be hit by rays
type Shape interface {
	// Hit returns the nearest intersection whose t lies strictly inside rayT.
	// The record is nil when the bool is false.
	Hit(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool)
}
