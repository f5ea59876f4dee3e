package main

import "github.com/mcoot/triviagame/internal/cli"

func main() {
	cli.Execute()
}
