//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Pack mg.Namespace

func projectFile() (string, error) {
	p := os.Getenv("EPOCH_PROJECT")
	if p == "" {
		return "", fmt.Errorf("set EPOCH_PROJECT to the project file to pack")
	}
	return p, nil
}

// Builds the asset pack of the project named by $EPOCH_PROJECT.
func (Pack) Build() error {
	mg.Deps(Build.Runtime)
	p, err := projectFile()
	if err != nil {
		return err
	}
	_, err = executeCmd(binary, withArgs("build", p), withStream())
	return err
}

// Builds the pack of $EPOCH_PROJECT and boots the runtime on it.
func (Pack) Run() error {
	mg.Deps(Pack.Build)
	p, err := projectFile()
	if err != nil {
		return err
	}
	_, err = executeCmd(binary, withArgs("run", p), withStream())
	return err
}
