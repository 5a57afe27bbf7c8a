// Package main is the entry point for the virtkube CLI.
//
// virtkube reconciles a declarative fleet of libvirt/KVM virtual machines
// and bootstraps a kubeadm Kubernetes cluster across them.
//
// Commands: plan, apply, destroy, bootstrap, status, version.
package main

import (
	"fmt"
	"os"

	"github.com/virtkube/virtkube/cmd/virtkube/commands"
	"github.com/virtkube/virtkube/internal/fleet"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Distinct exit codes per failure class, for scripting around the CLI.
const (
	exitOK          = 0
	exitGeneric     = 1
	exitInvalidSpec = 2
	exitProvision   = 3
	exitTimeout     = 4
	exitBootstrap   = 5
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}

func exitCode(err error) int {
	switch {
	case fleet.IsInvalidSpec(err):
		return exitInvalidSpec
	case fleet.IsProvision(err):
		return exitProvision
	case fleet.IsTimeout(err):
		return exitTimeout
	case fleet.IsBootstrap(err):
		return exitBootstrap
	default:
		return exitGeneric
	}
}
