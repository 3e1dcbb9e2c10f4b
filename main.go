package main

import "tooma/internal/cli"

func main() {
	cli.Execute()
}
