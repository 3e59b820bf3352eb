package main

import "github.com/agentic-research/designtree/cmd"

func main() {
	cmd.Execute()
}
