package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/mod/modfile"

	"github.com/kolkov/memlock/lock"
)

// modulePath is the import path embedding projects require.
const modulePath = "github.com/kolkov/memlock"

var (
	doctorDir string

	doctorCmd = &cobra.Command{
		Use:   "doctor",
		Short: "Inspect a project's go.mod for memlock problems",
		Long: `doctor finds the go.mod governing a directory and checks how it wires
this library in: whether it is required at all, whether the required
version speaks the same cell protocol as this binary, and whether replace
directives reroute the module somewhere unexpected. Processes sharing
lock cells must agree on the protocol, so a version mismatch between two
embedders is a correctness problem, not a hygiene one.`,
		RunE: runDoctor,
	}
)

func init() {
	doctorCmd.Flags().StringVar(&doctorDir, "dir", ".", "directory whose governing go.mod to inspect")

	rootCmd.AddCommand(doctorCmd)
}

// modReport is the result of inspecting one go.mod.
type modReport struct {
	Path       string // go.mod location
	Module     string // module being declared
	GoVersion  string // go directive, "" if absent
	Required   bool   // module requires memlock
	ReqVersion string // required memlock version
	Compatible bool   // required version speaks this binary's protocol
	Replaces   []string
}

// findGoMod walks up from startDir looking for a go.mod file.
//
// Returns:
//   - Path to go.mod file
//   - Empty string if no go.mod governs startDir
func findGoMod(startDir string) string {
	dir := startDir
	for {
		modPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(modPath); err == nil {
			return modPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// inspectGoMod parses the go.mod at path and reports how it uses memlock.
//
// Parameters:
//   - path: go.mod file to parse
//
// Returns:
//   - Report describing the project's memlock wiring
//   - Error if the file cannot be read or parsed
func inspectGoMod(path string) (*modReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	r := &modReport{Path: path}
	if f.Module != nil {
		r.Module = f.Module.Mod.Path
	}
	if f.Go != nil {
		r.GoVersion = f.Go.Version
	}
	for _, req := range f.Require {
		if req.Mod.Path == modulePath {
			r.Required = true
			r.ReqVersion = req.Mod.Version
			r.Compatible = lock.IsCompatible(req.Mod.Version)
		}
	}
	for _, rep := range f.Replace {
		if rep.Old.Path == modulePath {
			target := rep.New.Path
			if rep.New.Version != "" {
				target += " " + rep.New.Version
			}
			r.Replaces = append(r.Replaces, target)
		}
	}
	return r, nil
}

func runDoctor(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(doctorDir)
	if err != nil {
		return err
	}
	modPath := findGoMod(dir)
	if modPath == "" {
		return fmt.Errorf("no go.mod governs %s", dir)
	}

	r, err := inspectGoMod(modPath)
	if err != nil {
		return err
	}

	fmt.Printf("go.mod:      %s\n", r.Path)
	fmt.Printf("module:      %s\n", r.Module)
	if r.GoVersion != "" {
		fmt.Printf("go:          %s\n", r.GoVersion)
	}
	fmt.Printf("this binary: %s v%s\n", modulePath, lock.Version)

	if !r.Required {
		fmt.Printf("\n%s is not required by this project.\n", modulePath)
		return nil
	}

	fmt.Printf("required:    %s %s\n", modulePath, r.ReqVersion)
	for _, rep := range r.Replaces {
		fmt.Printf("replaced by: %s\n", rep)
	}

	if !r.Compatible {
		return fmt.Errorf("required version %s does not speak this binary's cell protocol (v%s): processes sharing cells must not mix these", r.ReqVersion, lock.Version)
	}
	fmt.Printf("\ncompatible: cells may be shared with this binary.\n")
	return nil
}
