package main

import "dupindex/internal/cli"

func main() {
	cli.Execute()
}
