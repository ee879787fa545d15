package imagedeploy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Builder turns a build context into an image tarball in `docker save` format.
type Builder interface {
	Build(ctx context.Context, contextDir, localRef, tarballPath string) error
}

// DockerCLI builds images with the docker command line client.
type DockerCLI struct {
	// Binary is the docker executable. Defaults to "docker".
	Binary string
	// Platform is the target platform. Defaults to "linux/amd64".
	Platform string
	// Output receives build progress. Nil discards it.
	Output io.Writer
}

// Build runs `docker build` followed by `docker save`.
func (d DockerCLI) Build(ctx context.Context, contextDir, localRef, tarballPath string) error {
	binary := d.Binary
	if binary == "" {
		binary = "docker"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%w: %s binary not found in PATH: %v", ErrBuildFailed, binary, err)
	}
	platform := d.Platform
	if platform == "" {
		platform = "linux/amd64"
	}

	if err := d.run(ctx, binary, "build", "--platform", platform, "-t", localRef, contextDir); err != nil {
		return err
	}
	return d.run(ctx, binary, "save", "-o", tarballPath, localRef)
}

func (d DockerCLI) run(ctx context.Context, binary string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	if d.Output != nil {
		cmd.Stdout = d.Output
		cmd.Stderr = io.MultiWriter(d.Output, &stderr)
	} else {
		cmd.Stderr = &stderr
	}
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: %s %s: %s", ErrBuildFailed, binary, args[0], lastLine(msg))
	}
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
