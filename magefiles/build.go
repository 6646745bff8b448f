//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every package in the module.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("build", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs go vet across the module.
func (Build) Vet() error {
	if _, err := executeCmd("go", withArgs("vet", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the full test suite with the race detector.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Tidies go.mod and runs go generate.
func (Build) Tidy() error {
	return goTidy()
}

// Compiles the culling compute shader to SPIR-V. Requires glslc on PATH.
func (Build) Shaders() error {
	if _, err := executeCmd("glslc", withArgs("shaders/cull.comp", "-o", "shaders/cull.spv"), withStream()); err != nil {
		return err
	}
	return nil
}
