package remote

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"text/template"
	"time"

	"github.com/imamik/opspipe/internal/pipeline"
)

// CommandVars are the values available to command templates.
type CommandVars struct {
	WorkDir string
	Service string
}

// Deploy describes a single-file deploy to one host.
type Deploy struct {
	LocalFile string
	// RemotePath is resolved against WorkDir when relative.
	RemotePath string
	WorkDir    string
	Service    string

	BuildCommand   string
	RestartCommand string
	StartCommand   string

	TailLines       int
	TransferTimeout time.Duration
	CommandTimeout  time.Duration
}

// Steps returns the fixed deploy pipeline: transfer, build, restart.
// Each step runs only if the previous one succeeded.
func (d Deploy) Steps() ([]pipeline.Step[Executor], error) {
	if d.LocalFile == "" {
		return nil, errors.New("deploy: local file cannot be empty")
	}
	if d.RemotePath == "" {
		return nil, errors.New("deploy: remote path cannot be empty")
	}

	vars := CommandVars{WorkDir: d.WorkDir, Service: d.Service}
	build, err := Render("build", d.BuildCommand, vars)
	if err != nil {
		return nil, err
	}
	restart, err := Render("restart", d.RestartCommand, vars)
	if err != nil {
		return nil, err
	}
	start, err := Render("start", d.StartCommand, vars)
	if err != nil {
		return nil, err
	}
	if build == "" {
		return nil, errors.New("deploy: build command cannot be empty")
	}
	if restart == "" {
		return nil, errors.New("deploy: restart command cannot be empty")
	}

	return []pipeline.Step[Executor]{
		TransferFile{
			LocalPath:  d.LocalFile,
			RemotePath: d.ResolvedRemotePath(),
			MaxRunFor:  d.TransferTimeout,
		},
		RunCommand{
			Label:     "build",
			Command:   build,
			WorkDir:   d.WorkDir,
			TailLines: d.TailLines,
			MaxRunFor: d.CommandTimeout,
		},
		RestartService{
			Service:        d.Service,
			RestartCommand: restart,
			StartCommand:   start,
			WorkDir:        d.WorkDir,
			TailLines:      d.TailLines,
			MaxRunFor:      d.CommandTimeout,
		},
	}, nil
}

// ResolvedRemotePath returns RemotePath, joined to WorkDir when relative.
func (d Deploy) ResolvedRemotePath() string {
	if d.WorkDir == "" || path.IsAbs(d.RemotePath) {
		return d.RemotePath
	}
	return path.Join(d.WorkDir, d.RemotePath)
}

// Render expands a command template. Unknown fields are an error.
func Render(name, text string, vars CommandVars) (string, error) {
	if !strings.Contains(text, "{{") {
		return strings.TrimSpace(text), nil
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("invalid %s command template: %w", name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("failed to render %s command: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
