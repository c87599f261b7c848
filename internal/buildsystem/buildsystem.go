// Package buildsystem identifies how a project is built from marker files in
// its directory.
package buildsystem

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/logging"
	"github.com/Iron-Ham/idecore/internal/registry"
)

// BuildSystem describes the build system of a project.
type BuildSystem interface {
	// ID is a short stable identifier such as "meson" or "directory".
	ID() string
	DisplayName() string
	// ProjectFile is the file the build system was detected from. It may
	// differ from the path the project was opened with.
	ProjectFile() string
}

// Resolver finds the build system for a project file or directory.
type Resolver interface {
	Resolve(ctx context.Context, projectFile string) (BuildSystem, error)
}

// Detector recognizes a build system by the presence of one of its marker
// files.
type Detector struct {
	ID          string
	DisplayName string
	Markers     []string
}

type detected struct {
	id          string
	displayName string
	projectFile string
}

func (d *detected) ID() string          { return d.id }
func (d *detected) DisplayName() string { return d.displayName }
func (d *detected) ProjectFile() string { return d.projectFile }

// DirectoryID is the build system used when no marker file matches.
const DirectoryID = "directory"

// DefaultDetectors returns a registry with the built-in detectors.
func DefaultDetectors() *registry.Registry[Detector] {
	reg := registry.New[Detector]("build system")
	reg.Register("meson", 100, Detector{ID: "meson", DisplayName: "Meson", Markers: []string{"meson.build"}})
	reg.Register("cmake", 110, Detector{ID: "cmake", DisplayName: "CMake", Markers: []string{"CMakeLists.txt"}})
	reg.Register("cargo", 120, Detector{ID: "cargo", DisplayName: "Cargo", Markers: []string{"Cargo.toml"}})
	reg.Register("go", 130, Detector{ID: "go", DisplayName: "Go Modules", Markers: []string{"go.mod"}})
	reg.Register("npm", 140, Detector{ID: "npm", DisplayName: "npm", Markers: []string{"package.json"}})
	reg.Register("autotools", 150, Detector{ID: "autotools", DisplayName: "Autotools", Markers: []string{"configure.ac", "configure.in"}})
	reg.Register("make", 200, Detector{ID: "make", DisplayName: "Make", Markers: []string{"GNUmakefile", "Makefile", "makefile"}})
	return reg
}

// MarkerResolver checks the registered detectors in priority order and
// falls back to treating the project as a plain directory.
type MarkerResolver struct {
	detectors *registry.Registry[Detector]
	logger    *logging.Logger
}

// NewMarkerResolver creates a resolver over detectors. A nil registry uses
// DefaultDetectors.
func NewMarkerResolver(detectors *registry.Registry[Detector], logger *logging.Logger) *MarkerResolver {
	if detectors == nil {
		detectors = DefaultDetectors()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &MarkerResolver{detectors: detectors, logger: logger.WithComponent("buildsystem")}
}

// Resolve implements Resolver. When projectFile names a marker file of a
// detector, that detector wins regardless of priority.
func (r *MarkerResolver) Resolve(ctx context.Context, projectFile string) (BuildSystem, error) {
	info, err := os.Stat(projectFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("project", projectFile).WithCause(err)
		}
		return nil, errors.Wrapf(err, "failed to stat project %s", projectFile)
	}

	dir := projectFile
	if !info.IsDir() {
		dir = filepath.Dir(projectFile)
		base := filepath.Base(projectFile)
		for _, e := range r.detectors.Entries() {
			for _, m := range e.Value.Markers {
				if m == base {
					return r.found(e.Value, projectFile), nil
				}
			}
		}
	}

	for _, e := range r.detectors.Entries() {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCanceledError("build system resolution", err)
		}
		for _, m := range e.Value.Markers {
			candidate := filepath.Join(dir, m)
			if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
				return r.found(e.Value, candidate), nil
			}
		}
	}

	r.logger.Debug("no build system detected, using directory", "path", dir)
	return &detected{id: DirectoryID, displayName: "Directory", projectFile: dir}, nil
}

func (r *MarkerResolver) found(d Detector, projectFile string) BuildSystem {
	r.logger.Debug("detected build system", "build_system", d.ID, "project_file", projectFile)
	return &detected{id: d.ID, displayName: d.DisplayName, projectFile: projectFile}
}
