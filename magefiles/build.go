//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

const binary = "bin/epoch"

type Build mg.Namespace

// Runs go mod download and then builds the epoch binary into bin/.
func (Build) Runtime() error {
	if _, err := executeCmd("go", withArgs("mod", "download"), withStream()); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "-o", binary, "."), withStream())
	return err
}
