// Package contactangle measures sessile drop contact angles by fitting
// simple geometric models to a drop contour and intersecting them with the
// solid baseline.
//
// Four methods are available: a straight tangent line and a quadratic fitted
// to the points next to each contact point, an algebraic circle and a direct
// ellipse fitted to the whole contour. Every fitter works in image
// coordinates and takes the baseline as a geometry.Line; the drop side of the
// baseline is the side holding the contour centroid.
package contactangle
