//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every test with the race detector.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withStream())
	return err
}

// Runs the asset pack tests only.
func (Test) Pack() error {
	_, err := executeCmd("go", withArgs("test", "-count=1", "./engine/assetpack/...", "./engine/serialization/..."), withStream())
	return err
}
