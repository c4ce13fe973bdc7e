// Package contour turns unordered drop edge points into ordered paths.
//
// Edge extraction yields a cloud of boundary pixels in no particular order.
// Every fitter downstream needs them as a single connected travel path, so
// Order walks the cloud by nearest neighbour and then cuts the path at the
// first gap that is too long to be part of the drop outline. Points past the
// gap are usually edge noise or the reflection line under a sessile drop and
// are discarded.
//
// # Jump thresholds
//
//   - LiteralJump(px): a fixed gap in pixels. The zero value uses 5 px.
//   - CalibratedJump(): 1.5 times the mean spacing of the region away from the
//     baseline, which adapts to contours sampled at sub-pixel or coarse steps.
//   - NoJump(): keep the full path.
//
// # Sessile drops
//
// SplitAtApex separates a sessile drop outline into its two contact sides,
// mirrored to face the same direction, for fitters that work on half drops.
package contour
