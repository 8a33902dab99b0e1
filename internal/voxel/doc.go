// Package voxel owns the coordinate layer of the tracking data model:
// voxel grids, world/voxel coordinate mapping, and scalar or multi-channel
// volumes with interpolated lookup.
//
// Responsibilities: grid geometry, bounds handling, volume sampling, and
// the binary volume codec used for persistence.
//
// Dependency rule: voxel may depend on gonum only; no tracking or storage
// code is allowed in this package.
package voxel
