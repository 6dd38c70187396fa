package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/recall/internal/dagger"
)

// binaries are the main packages shipped in a release.
var binaries = []string{"./cli/recall", "./cli/recallprox", "./cli/recallapi"}

// Build and return directory of go binaries.
//
// The sqlite store needs cgo, so each platform is built natively in a
// container of that platform rather than cross compiled.
func (r *Recall) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	platforms := []dagger.Platform{"linux/amd64", "linux/arm64"}

	// create empty directory to put build artifacts
	outputs := dag.Directory()

	for _, platform := range platforms {
		path := string(platform) + "/"

		golang := dag.Container(dagger.ContainerOpts{Platform: platform}).
			From("golang:1.25-bookworm").
			WithExec([]string{"apt-get", "update"}).
			WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
			WithEnvVariable("CGO_ENABLED", "1").
			WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod-"+strings.ReplaceAll(path, "/", "-"))).
			WithDirectory("/src", r.Source).
			WithWorkdir("/src")

		for _, bin := range binaries {
			golang = golang.WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, bin})
		}

		outputs = outputs.WithDirectory(path, golang.Directory(path))
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (r *Recall) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/recall/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/recall/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/recall/pkg/utils.Buildtime=%s'", buildtime),
	}

	return r.Build(ctx, strings.Join(ldflags, " "))
}
