// Package server implements the MCP (Model Context Protocol) server for drop
// shape analysis.
//
// This package provides a JSON-RPC 2.0 server that exposes contour
// preparation, needle calibration, Young-Laplace pendant drop fitting and
// geometric contact angle measurement as MCP tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Contours:
//   - contour_order: Nearest-neighbour ordering with jump truncation
//   - contour_split: Split a sessile contour at its apex
//
// Needle:
//   - needle_calibrate: Parallel line fit and pixel scale
//
// Pendant drop:
//   - pendant_profile: Integrate a dimensionless profile
//   - pendant_fit: Young-Laplace fit of a contour
//   - pendant_properties: Tension, volume, area and Worthington number
//
// Sessile drop:
//   - contact_angle_fit: Tangent, polynomial, circle and ellipse fits
//
// Images:
//   - image_load, image_crop
//   - image_extract_edges: Canny or threshold silhouette edges
//   - image_detect_baseline, image_detect_needle
//
// Output and batches:
//   - render_fit: Fit overlay as a PNG
//   - analyze_frames: Concurrent analysis of many frames
//
// # Coordinates
//
// Every tool takes and returns image coordinates (y down) except
// pendant_profile and the fitted Young-Laplace parameters, which are y-up.
// pendant_fit and render_fit flip points about image_height.
//
// # Error Handling
//
// Malformed or out of range arguments return -32602. Tool execution errors
// return -32000 with the Go error string in data. Numerical non-convergence
// is not an error; it is reported in the result's stop flags.
//
// # Usage
//
//	srv, err := server.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
