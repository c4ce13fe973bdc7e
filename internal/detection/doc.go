// Package detection finds the reference features of a drop image in a set
// of edge points: the substrate baseline under a sessile drop, the two
// sides of the needle above a pendant drop, and the connected outline of
// the drop itself.
//
// Lines are found with a Hough transform restricted to the expected
// orientation and refined by least squares over their inlier points.
//
// # Coordinate System
//
// All coordinates use the image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
package detection
