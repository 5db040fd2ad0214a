// Command taskboard manages kanban boards from the terminal and serves them
// over HTTP.
package main

import "github.com/mesh-intelligence/taskboard/internal/cli"

func main() {
	cli.Execute()
}
