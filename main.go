package main

import "claimed-world/internal/cli"

func main() {
	cli.Execute()
}
