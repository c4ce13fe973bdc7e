// Package younglaplace fits the Young–Laplace equation to pendant drop
// contours.
//
// # Profiles
//
// Generate integrates the dimensionless axisymmetric capillary equations
//
//	dx/ds = cos φ
//	dy/ds = sin φ
//	dφ/ds = 2 − Bo·y − sin φ / x
//
// together with the derivatives of x, y and φ with respect to the Bond
// number Bo, which the fit uses for its Jacobian. DropShape keeps one
// profile in step with its parameter vector [x0, y0, R, Bo, ω].
//
// # Fitting
//
// Optimizer runs Levenberg–Marquardt over the five parameters. Each step
// finds, for every contour point, the nearest profile point by Newton's
// method on arclength and uses the signed distance as the residual.
//
// # Physical properties
//
// ComputeProperties turns a fit into interfacial tension, volume, surface
// area and the Worthington number. Dimensionless volume and area integrals
// are memoised in a VolSurCache shared across fits.
//
// All contours handed to this package are in y-up coordinates with the
// apex as the lowest point.
package younglaplace
