package main

import (
	"context"
	"os"

	"labs.lesiw.io/ops/golang"
	"labs.lesiw.io/ops/golib"

	"lesiw.io/command"
	"lesiw.io/command/sys"
	"lesiw.io/ops"
)

type Ops struct{ golib.Ops }

var docker = command.Shell(sys.Machine(), "docker")

func main() {
	golang.GoModReplaceAllowed = true
	if len(os.Args) < 2 {
		os.Args = append(os.Args, "check")
	}
	ops.Handle(Ops{})
}

// DevUp starts a local Postgres for the snooze CLI.
// Run the CLI with --config internal/dev/snooze.yaml against it.
func (o Ops) DevUp(ctx context.Context) error {
	if err := o.DevDown(ctx); err != nil {
		return err
	}
	ctx = command.WithEnv(ctx,
		map[string]string{"PWD": "internal/dev"},
	)
	return docker.Exec(ctx,
		"docker", "compose", "up",
		"--detach",
		"--wait",
		"--remove-orphans",
	)
}

func (Ops) DevDown(ctx context.Context) error {
	ctx = command.WithEnv(ctx,
		map[string]string{"PWD": "internal/dev"},
	)
	return docker.Exec(ctx,
		"docker", "compose", "down",
		"--remove-orphans",
		"--volumes",
	)
}
