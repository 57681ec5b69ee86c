package manifest

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ProjectInfo identifies the project under analysis.
type ProjectInfo struct {
	RootPath string `json:"root_path"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}

// DetectProject identifies the project at projectPath from its build
// files. Python manifests win over node and go ones since this is what
// the analyzer is usually pointed at. Detection order: pyproject.toml,
// requirements.txt, package.json, go.mod, then the directory name with
// type "unknown".
func DetectProject(projectPath string) *ProjectInfo {
	info := &ProjectInfo{
		RootPath: projectPath,
		Name:     filepath.Base(projectPath), // Default to directory name
		Type:     "unknown",
	}

	if name := pyprojectName(projectPath); name != "" {
		info.Name = name
		info.Type = "python"
		return info
	}

	// A bare requirements.txt still marks the project as python,
	// keeping the directory name.
	if _, err := os.Stat(filepath.Join(projectPath, RequirementsFile)); err == nil {
		info.Type = "python"
		return info
	}

	if name := packageJSONName(projectPath); name != "" {
		info.Name = name
		info.Type = "node"
		return info
	}

	if name := goModName(projectPath); name != "" {
		info.Name = name
		info.Type = "go"
		return info
	}

	return info
}

// pyprojectName parses pyproject.toml and extracts the project name.
func pyprojectName(projectPath string) string {
	file, err := os.Open(filepath.Join(projectPath, "pyproject.toml"))
	if err != nil {
		return ""
	}
	defer func() { _ = file.Close() }()

	// Simple TOML parsing for name field
	// Looking for: name = "project-name" under [project] section
	scanner := bufio.NewScanner(file)
	nameRegex := regexp.MustCompile(`^\s*name\s*=\s*["']([^"']+)["']`)
	inProjectSection := false

	for scanner.Scan() {
		line := scanner.Text()

		// Check for section headers
		if strings.HasPrefix(strings.TrimSpace(line), "[") {
			inProjectSection = strings.TrimSpace(line) == "[project]"
			continue
		}

		if inProjectSection {
			if matches := nameRegex.FindStringSubmatch(line); len(matches) > 1 {
				return matches[1]
			}
		}
	}

	return ""
}

// packageJSONName parses package.json and extracts the name.
func packageJSONName(projectPath string) string {
	data, err := os.ReadFile(filepath.Join(projectPath, PackageJSONFile))
	if err != nil {
		return ""
	}

	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}

	name := pkg.Name
	if name == "" {
		return ""
	}

	// Handle scoped packages (@org/name -> name)
	if strings.HasPrefix(name, "@") {
		parts := strings.Split(name, "/")
		if len(parts) > 1 {
			name = parts[len(parts)-1]
		}
	}

	return name
}

// goModName parses go.mod and extracts the module name.
func goModName(projectPath string) string {
	file, err := os.Open(filepath.Join(projectPath, "go.mod"))
	if err != nil {
		return ""
	}
	defer func() { _ = file.Close() }()

	// Parse first line: "module <path>"
	scanner := bufio.NewScanner(file)
	moduleRegex := regexp.MustCompile(`^module\s+(.+)$`)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if matches := moduleRegex.FindStringSubmatch(line); len(matches) > 1 {
			// Extract last segment of module path
			return filepath.Base(matches[1])
		}
	}

	return ""
}
