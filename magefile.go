//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary   = "gamesync"
	mainPkg  = "./cmd/gamesync"
	coverOut = "coverage.out"
)

// Default target to run when none is specified
var Default = Build

// Build builds the binary
func Build() error {
	fmt.Println("Building", binary)
	return sh.RunV("go", "build", "-o", binary, mainPkg)
}

// Install installs the binary into GOBIN
func Install() error {
	return sh.RunV("go", "install", mainPkg)
}

// Test runs the unit tests with the race detector
func Test() error {
	return sh.RunV("go", "test", "-race", "-shuffle=on", "-coverprofile="+coverOut, "./...")
}

// Integration exports a real manifest to a temp dir twice and checks the second run is a no-op
func Integration() error {
	return sh.RunV("go", "test", "-tags", "integration", "-race", "./tests/...")
}

// Lint runs golangci-lint
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Fmt formats the code
func Fmt() error {
	if err := sh.RunV("gofmt", "-s", "-w", "."); err != nil {
		return err
	}

	return sh.RunV("goimports", "-w", ".")
}

// Check formats, lints and runs every test suite
func Check() {
	mg.SerialDeps(Fmt, Lint, Test, Integration)
}

// Coverage writes an HTML coverage report
func Coverage() error {
	mg.Deps(Test)

	return sh.RunV("go", "tool", "cover", "-html="+coverOut, "-o", "coverage.html")
}

// Clean removes build artifacts
func Clean() {
	for _, f := range []string{binary, coverOut, "coverage.html"} {
		_ = os.Remove(f)
	}
}
