// Package cli turns vegapanel's command line into an app.Config. Flags given
// here override the matching values from the HCL and YAML configuration
// files, and usage errors are reported as an ExitError carrying the exit code.
package cli
