// Command odin is the CLI surface for the governance runtime: a thin
// collaborator over the core packages under internal/, never a required
// part of the orchestrator contract.
package main

func main() {
	Execute()
}
