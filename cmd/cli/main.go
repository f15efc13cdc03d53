package main

import "github.com/heap-trace/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
