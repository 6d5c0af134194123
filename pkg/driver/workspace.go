package driver

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/registry"
)

var designSuffixes = []string{".node.yaml", ".module.yaml", ".parameter_set.yaml", ".system.yaml"}

type packageXML struct {
	Name string `xml:"name"`
}

// discoverFiles walks root looking for every design file, and for each one
// determines the owning ROS package by walking up to the nearest
// package.xml (spec.md §4.C.2), falling back to that directory's own name
// when no package.xml exists.
func discoverFiles(root string) (paths []string, filePackage map[string]string, err error) {
	filePackage = map[string]string{}
	packageNameCache := map[string]string{}

	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		if !hasDesignSuffix(path) {
			return nil
		}
		paths = append(paths, path)
		filePackage[path] = packageNameFor(filepath.Dir(path), packageNameCache)
		return nil
	})
	return paths, filePackage, err
}

func hasDesignSuffix(path string) bool {
	for _, suffix := range designSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func packageNameFor(dir string, cache map[string]string) string {
	if name, ok := cache[dir]; ok {
		return name
	}

	name := findPackageName(dir)
	cache[dir] = name
	return name
}

func findPackageName(dir string) string {
	for {
		candidate := filepath.Join(dir, "package.xml")
		if data, err := os.ReadFile(candidate); err == nil {
			var pkg packageXML
			if xml.Unmarshal(data, &pkg) == nil && pkg.Name != "" {
				return pkg.Name
			}
			return filepath.Base(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return filepath.Base(dir)
		}
		dir = parent
	}
}

// LoadWorkspace discovers and indexes every design file under manifestDir
// into a fresh registry (spec.md §4.I "load registry").
func LoadWorkspace(manifestDir string, packageProvider map[string]design.PackageResolution) (*registry.Registry, error) {
	paths, filePackage, err := discoverFiles(manifestDir)
	if err != nil {
		return nil, err
	}

	reg := registry.New(registry.WorkspaceConfig{PackageProvider: packageProvider})
	if err := reg.Load(paths, filePackage); err != nil {
		return nil, err
	}
	return reg, nil
}
