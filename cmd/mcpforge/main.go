package main

import "github.com/mvp-joe/mcpforge/internal/cli"

func main() {
	cli.Execute()
}
