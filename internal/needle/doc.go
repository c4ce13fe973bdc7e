// Package needle measures the needle in a pendant drop image.
//
// The needle silhouette is two straight, parallel edges. Fitting both edges
// at once gives the needle width in pixels, which against the known physical
// needle diameter yields the metres-per-pixel scale for every other length
// in the image.
package needle
