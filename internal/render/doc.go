// Package render draws fit overlays: the observed drop contour as points
// with the fitted model on top, returned as a base64 PNG for MCP clients.
package render
