// Package tracking owns streamline propagation: the discrete direction
// sphere, spherical-function fields, per-tissue propagation policies, seed
// generation, and the concurrent tracking engine.
//
// Dependency rule: tracking may depend on voxel and streamline, but never
// on storage or the HTTP layer.
package tracking
