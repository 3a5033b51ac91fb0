package main

import (
	"setup-host/cmd" // Import the cmd package which contains the CLI commands and task dispatch
)

// main is the program entry point.
// It delegates to cmd.Execute() which handles command line argument parsing and execution.
//
// setup-host brings a fresh Linux machine to a personal baseline:
//   - Merges /etc/skel and a dotfiles tree into the home directory
//   - Adds the Docker APT repository when Docker is not installed yet
//   - Refreshes, upgrades and installs APT and Snap packages
//   - Installs or self-updates mise and registers global tool versions
//   - Installs Python runtimes and tools with uv
//   - Pulls container images and finally runs free-form setup commands
//
// Error handling strategy:
//   - Every external command is echoed before it runs and any non-zero exit aborts the run
//   - Re-running the whole sequence is the recovery mechanism; each step is idempotent
func main() {
	cmd.Execute()
}
