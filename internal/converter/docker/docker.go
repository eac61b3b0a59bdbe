// Package docker runs the HTML-to-PDF converter inside throwaway containers.
//
// WHY A CONTAINER?
// wkhtmltopdf is a full browser engine fed with user-supplied content. Run
// directly it can reach the network and the host file system. Inside a
// container it sees only what is mounted.
//
// SANDBOX:
//   - no network
//   - read-only root file system with a small tmpfs for scratch space
//   - the card directory mounted read-only at /cards
//   - memory and CPU limits from configuration
//
// CONVERSION OVERVIEW:
//  1. take a pre-warmed container from the pool (see pool.go)
//  2. exec wkhtmltopdf with the card file as input and "-" as output
//  3. collect the PDF from stdout and the diagnostics from stderr
//  4. remove the container; the pool starts a fresh one in the background
//
// The Docker Engine API is used through github.com/docker/docker/client, the
// same client the docker CLI is built on. No docker binary is needed.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/business-cards/internal/converter"
)

// Converter implements converter.Converter using Docker.
type Converter struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

var _ converter.Converter = (*Converter)(nil)

// New creates a docker Converter, pulls the image and starts the pool.
func New(cfg Config, logger *slog.Logger) (*Converter, error) {
	abs, err := filepath.Abs(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("docker: resolving storage dir: %w", err)
	}
	cfg.StorageDir = abs

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: creating client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	logger.Info("ensuring converter image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker: pulling image: %w", err)
	}
	defer reader.Close()
	// Read everything to block until the pull is complete
	_, _ = io.Copy(io.Discard, reader)
	logger.Info("converter image is ready")

	c := &Converter{
		cli:    cli,
		config: cfg,
		logger: logger,
	}
	c.pool = NewPool(cli, cfg, logger)
	c.pool.Start()

	return c, nil
}

// Name implements converter.Converter.
func (c *Converter) Name() string {
	return "docker"
}

// Close shuts down the pool and the docker client.
func (c *Converter) Close() error {
	c.pool.Stop()
	return c.cli.Close()
}

// Convert renders the card inside a sandbox container.
func (c *Converter) Convert(ctx context.Context, req converter.Request) (*converter.Result, error) {
	start := time.Now()

	containerID, err := c.pool.GetContainer(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: no sandbox available: %v", converter.ErrConversion, err)
	}

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := c.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{Force: true})
		if err != nil {
			c.logger.Error("failed to remove sandbox container", slog.String("id", containerID), slog.String("error", err.Error()))
		}
	}()

	execCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	execResp, err := c.cli.ContainerExecCreate(execCtx, containerID, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          execCommand(c.config.Binary, req),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating exec: %v", converter.ErrConversion, err)
	}

	attachResp, err := c.cli.ContainerExecAttach(execCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: attaching to exec: %v", converter.ErrConversion, err)
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("%w: reading converter output: %v", converter.ErrConversion, err)
		}
	case <-execCtx.Done():
		return nil, fmt.Errorf("%w: conversion timed out after %s", converter.ErrConversion, c.config.Timeout)
	}

	inspect, err := c.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: inspecting exec: %v", converter.ErrConversion, err)
	}
	if inspect.ExitCode != 0 {
		return nil, fmt.Errorf("%w: %s exited with %d: %s", converter.ErrConversion,
			c.config.Binary, inspect.ExitCode, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: %s produced no output", converter.ErrConversion, c.config.Binary)
	}

	return &converter.Result{PDF: stdout.Bytes(), Duration: time.Since(start)}, nil
}

// execCommand builds the converter argument list. The host path of the card
// is translated into the read-only mount; "-" sends the PDF to stdout.
func execCommand(binary string, req converter.Request) []string {
	return []string{
		binary,
		"--quiet",
		"--title", req.Title,
		path.Join(CardsMount, filepath.Base(req.HTMLPath)),
		"-",
	}
}
