package main

import "github.com/promptgate/promptgate/internal/cli"

func main() {
	cli.Execute()
}
