// Package git materializes source checkouts using the git CLI.
package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.trai.ch/lane/internal/core/domain"
	"go.trai.ch/lane/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Source = (*Source)(nil)

// Source implements ports.Source using the git CLI.
type Source struct {
	logger ports.Logger
}

// NewSource creates a new Source.
func NewSource(logger ports.Logger) *Source {
	return &Source{logger: logger}
}

// Checkout ensures dir contains the repository at the declared ref.
// A missing directory is cloned; an existing clone is fetched and the ref is
// checked out with --force so a previous run's working tree never leaks into
// this one.
func (s *Source) Checkout(ctx context.Context, checkout *domain.Checkout, dir string) error {
	if checkout == nil || checkout.Repository == "" {
		// The job runs against the current working tree.
		return nil
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return zerr.With(zerr.Wrap(err, domain.ErrCheckoutFailed.Error()), "dir", dir)
		}
		s.logger.Info("cloning " + checkout.Repository)
		if err := s.git(ctx, "", "clone", checkout.Repository, dir); err != nil {
			return err
		}
	} else {
		s.logger.Info("fetching " + checkout.Repository)
		if err := s.git(ctx, dir, "fetch", "origin"); err != nil {
			return err
		}
	}

	if checkout.Ref != "" {
		if err := s.git(ctx, dir, "checkout", "--force", checkout.Ref); err != nil {
			return err
		}
	}

	return nil
}

// git runs a git subcommand, optionally inside dir, and surfaces stderr in
// the error metadata when it fails.
func (s *Source) git(ctx context.Context, dir string, args ...string) error {
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}

	//nolint:gosec // args are constructed from validated configuration
	cmd := exec.CommandContext(ctx, "git", args...)
	if _, err := cmd.Output(); err != nil {
		gitErr := zerr.Wrap(err, domain.ErrCheckoutFailed.Error())
		gitErr = zerr.With(gitErr, "args", strings.Join(args, " "))

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			gitErr = zerr.With(gitErr, "stderr", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return gitErr
	}

	return nil
}
