// Package imaging is the raster front end for drop images.
//
// It loads frames through a bounded cache, crops the drop region, and turns
// pixels into point lists: Canny edge pixels (ExtractEdges) or the outline
// of a thresholded silhouette (ExtractSilhouette). Points are in image
// coordinates with (0,0) at the top-left pixel and Y increasing downward;
// the pendant-drop fit flips them to y-up before use.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The other functions are stateless
// and never modify the source image.
package imaging
