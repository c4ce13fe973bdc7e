package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Schema fragments shared by several tools.

func pointsProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items":       pointSchema(),
	}
}

func pointSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"type": "number"},
			"y": map[string]interface{}{"type": "number"},
		},
		"required": []string{"x", "y"},
	}
}

func lineProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"a": pointSchema(),
			"b": pointSchema(),
		},
		"required": []string{"a", "b"},
	}
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func numberProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": description,
	}
}

func integerProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

func boolProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": description,
	}
}

func regionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Optional region of interest (x1,y1)-(x2,y2). Returned points stay in full-image coordinates.",
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer"},
			"y1": map[string]interface{}{"type": "integer"},
			"x2": map[string]interface{}{"type": "integer"},
			"y2": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

// configProperty overrides the server configuration for a single call.
func configProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Optional per-call overrides of tolerances and physical constants, using the same keys as the config file (delta_tol, objective_tol, maximum_fitting_steps, delta_rho, gravity, needle_diameter_mm, metres_per_pixel, ...).",
	}
}

func methodsProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": "Contact angle methods. Default: all four.",
		"items": map[string]interface{}{
			"type": "string",
			"enum": []string{"tangent", "polynomial", "circle", "ellipse"},
		},
	}
}

// GetToolDefinitions returns all available tool definitions
func GetToolDefinitions() []Tool {
	return []Tool{
		// Contour preparation
		{
			Name:        "contour_order",
			Description: "Order an unordered set of edge points into a continuous contour by greedy nearest-neighbour walk, truncating at the first gap larger than the jump threshold.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points": pointsProperty("Edge points in image coordinates"),
					"start": map[string]interface{}{
						"type":        "object",
						"description": "Optional starting point. The nearest contour point is used. Default: leftmost point",
						"properties":  pointSchema()["properties"],
					},
					"jump": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"calibrated", "literal", "none"},
						"description": "Gap threshold mode. Default calibrated",
						"default":     "calibrated",
					},
					"jump_px": numberProperty("Gap threshold in pixels when jump is literal"),
					"y_up":    boolProperty("Points are already y-up. Affects the calibrated threshold"),
				},
				"required": []string{"points"},
			},
		},
		{
			Name:        "contour_split",
			Description: "Split a sessile drop contour at its apex into two y-up halves, each ordered from the apex towards its contact point, with the left half mirrored onto +x.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points": pointsProperty("Drop contour in image coordinates"),
				},
				"required": []string{"points"},
			},
		},

		// Needle
		{
			Name:        "needle_calibrate",
			Description: "Fit two straight parallel lines to the needle edges and return their separation in pixels. With needle_diameter_mm the pixel scale in metres per pixel is also returned.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"left":               pointsProperty("Left needle edge, ordered top to bottom"),
					"right":              pointsProperty("Right needle edge, ordered top to bottom"),
					"needle_diameter_mm": numberProperty("Physical needle diameter in mm"),
					"config":             configProperty(),
				},
				"required": []string{"left", "right"},
			},
		},

		// Pendant drop
		{
			Name:        "pendant_profile",
			Description: "Integrate the dimensionless Young-Laplace equations for a Bond number and return the sampled (x, y, phi) profile.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"bond":     numberProperty("Bond number"),
					"max_s":    numberProperty("Maximum dimensionless arclength. Default 4"),
					"s_points": integerProperty("Number of arclength intervals, greater than 1. Default 200"),
				},
				"required": []string{"bond"},
			},
		},
		{
			Name:        "pendant_fit",
			Description: "Fit the Young-Laplace shape to a pendant drop contour. Returns the fitted parameters [x0, y0, radius, bond, rotation], residuals, stop flags and, when a pixel scale and density are known, the physical properties.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points":       pointsProperty("Drop contour in image coordinates (y down)"),
					"image_height": numberProperty("Image height in pixels, used to flip points to y-up"),
					"order":        boolProperty("Order the points into a contour before fitting"),
					"initial_params": map[string]interface{}{
						"type":        "array",
						"description": "Optional starting parameters [x0, y0, radius, bond, rotation] in y-up pixels",
						"items":       map[string]interface{}{"type": "number"},
						"minItems":    5,
						"maxItems":    5,
					},
					"max_s":    numberProperty("Optional starting maximum arclength"),
					"s_points": integerProperty("Optional number of profile intervals"),
					"config":   configProperty(),
				},
				"required": []string{"points", "image_height"},
			},
		},
		{
			Name:        "pendant_properties",
			Description: "Convert fitted Young-Laplace parameters into interfacial tension, volume, surface area and Worthington number.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"params": map[string]interface{}{
						"type":        "array",
						"description": "Fitted parameters [x0, y0, radius, bond, rotation]",
						"items":       map[string]interface{}{"type": "number"},
						"minItems":    5,
						"maxItems":    5,
					},
					"max_arclength": numberProperty("Furthest contour arclength from the fit"),
					"config":        configProperty(),
				},
				"required": []string{"params", "max_arclength"},
			},
		},

		// Sessile drop
		{
			Name:        "contact_angle_fit",
			Description: "Measure left and right contact angles of a sessile drop against a baseline with the tangent, polynomial, circle and ellipse methods. A failing method does not stop the others.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points":          pointsProperty("Drop contour in image coordinates"),
					"baseline":        lineProperty("Substrate line through two points in image coordinates"),
					"methods":         methodsProperty(),
					"points_per_side": integerProperty("Points next to each contact point for tangent and polynomial fits. Default 15"),
					"strategy": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"contour_ends", "baseline_nearest"},
						"description": "Contact point choice for tangent and polynomial fits. Default contour_ends",
					},
					"order": boolProperty("Order the points into a contour before fitting"),
				},
				"required": []string{"points", "baseline"},
			},
		},

		// Images
		{
			Name:        "image_load",
			Description: "Load a drop image and return its dimensions, format and colour depth.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_crop",
			Description: "Extract a rectangular region of an image, optionally scaled. Returns a base64 PNG and the offset of the crop in the source image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty(),
					"x1":    integerProperty("Left edge of region"),
					"y1":    integerProperty("Top edge of region"),
					"x2":    integerProperty("Right edge of region"),
					"y2":    integerProperty("Bottom edge of region"),
					"scale": numberProperty("Optional scale factor. Default 1.0"),
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "image_extract_edges",
			Description: "Extract drop edge points. canny runs Gaussian blur, Sobel, non-maximum suppression and hysteresis with Otsu-derived thresholds by default; threshold binarises the image and returns the silhouette boundary.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"method": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"canny", "threshold"},
						"description": "Edge extraction method. Default canny",
						"default":     "canny",
					},
					"low":               integerProperty("Canny low threshold. 0 with high 0 derives both from Otsu"),
					"high":              integerProperty("Canny high threshold"),
					"blur_radius":       numberProperty("Gaussian blur radius. Default 2, negative disables"),
					"level":             integerProperty("Threshold level for the threshold method. 0 selects Otsu"),
					"region":            regionProperty(),
					"largest_component": boolProperty("Keep only the largest 8-connected group of edge points"),
					"include_image":     boolProperty("Include the edge or silhouette mask as a base64 PNG"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_detect_baseline",
			Description: "Find the substrate line under a sessile drop as the strongest near-horizontal Hough line among the image edges.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":         pathProperty(),
					"region":       regionProperty(),
					"max_tilt_deg": numberProperty("Largest accepted tilt from horizontal in degrees. Default 10"),
					"min_votes":    integerProperty("Minimum Hough votes. Default 20"),
					"tolerance":    numberProperty("Inlier distance in pixels for refinement. Default 2"),
					"drop_points":  boolProperty("Also return the edge points above the baseline"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_detect_needle",
			Description: "Find the two vertical needle edges above a pendant drop and fit them with needle calibration. With a needle diameter the pixel scale is returned.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":               pathProperty(),
					"region":             regionProperty(),
					"max_y":              numberProperty("Only edge points above this row are considered. Default: the image height"),
					"min_separation":     numberProperty("Minimum needle width in pixels. Default 5"),
					"max_tilt_deg":       numberProperty("Largest accepted tilt from vertical in degrees. Default 10"),
					"min_votes":          integerProperty("Minimum Hough votes. Default 20"),
					"needle_diameter_mm": numberProperty("Physical needle diameter in mm"),
					"config":             configProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Output
		{
			Name:        "render_fit",
			Description: "Plot a fit over its contour and return a base64 PNG. pendant takes the pendant_fit points and result; sessile takes the contact_angle_fit points, baseline and methods and refits them.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mode": map[string]interface{}{
						"type": "string",
						"enum": []string{"pendant", "sessile"},
					},
					"points":       pointsProperty("Contour in image coordinates"),
					"image_height": numberProperty("Image height for pendant mode"),
					"params": map[string]interface{}{
						"type":        "array",
						"description": "Pendant fit parameters [x0, y0, radius, bond, rotation]",
						"items":       map[string]interface{}{"type": "number"},
					},
					"max_arclength":   numberProperty("Pendant fit max_arclength"),
					"baseline":        lineProperty("Sessile baseline in image coordinates"),
					"methods":         methodsProperty(),
					"points_per_side": integerProperty("Points per side for tangent and polynomial fits"),
					"title":           map[string]interface{}{"type": "string"},
					"width":           numberProperty("Plot width in inches. Default 6"),
					"height":          numberProperty("Plot height in inches. Default 6"),
					"fit_color":       map[string]interface{}{"type": "string", "description": "Hex colour of the fit"},
				},
				"required": []string{"mode", "points"},
			},
		},

		// Batch
		{
			Name:        "analyze_frames",
			Description: "Analyse a batch of frames concurrently. Each frame is ordered, optionally needle-calibrated, then fitted in pendant or sessile mode. A failing frame does not affect the others.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frames": map[string]interface{}{
						"type":        "array",
						"description": "Frames with id, mode, contour, image_height, and optional needle {left, right}, baseline and methods",
						"items":       map[string]interface{}{"type": "object"},
					},
					"workers": integerProperty("Maximum frames in flight. Default: the configured worker count"),
					"config":  configProperty(),
				},
				"required": []string{"frames"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
