package kube

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external program and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandError is returned when kubectl exits non-zero.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", e.Command, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// KubectlExecutor answers queries by shelling out to kubectl.
type KubectlExecutor struct {
	path        string
	kubeconfig  string
	kubeContext string
	run         CommandRunner
}

func NewKubectlExecutor(path, kubeconfig, kubeContext string) *KubectlExecutor {
	if path == "" {
		path = "kubectl"
	}
	return &KubectlExecutor{
		path:        path,
		kubeconfig:  kubeconfig,
		kubeContext: kubeContext,
		run:         runCommand,
	}
}

func (e *KubectlExecutor) Execute(ctx context.Context, q Query) ([]byte, error) {
	return e.run(ctx, e.path, e.args(q)...)
}

func (e *KubectlExecutor) args(q Query) []string {
	var args []string
	if e.kubeconfig != "" {
		args = append(args, "--kubeconfig", e.kubeconfig)
	}
	if e.kubeContext != "" && e.kubeContext != InClusterName {
		args = append(args, "--context", e.kubeContext)
	}
	args = append(args, "get", string(q.Kind))
	if q.AllNamespaces {
		args = append(args, "--all-namespaces")
	}
	return append(args, "-o", "json")
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &CommandError{
			Command: name + " " + strings.Join(args, " "),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.Bytes(), nil
}
