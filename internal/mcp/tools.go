package mcp

// ResourcesInput defines the input schema for the check_system_resources tool (no parameters).
type ResourcesInput struct{}

// DependenciesInput defines the input schema for the analyze_project_dependencies tool.
type DependenciesInput struct {
	ProjectPath string `json:"project_path" jsonschema:"Path to project directory"`
}

// HeavyInput defines the input schema for the detect_heavy_requirements tool.
type HeavyInput struct {
	ProjectPath string `json:"project_path" jsonschema:"Path to project directory"`
}

// ReportInput defines the input schema for the generate_readiness_report tool.
type ReportInput struct {
	ProjectPath string `json:"project_path" jsonschema:"Path to project directory"`
}
