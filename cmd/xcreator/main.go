package main

import "xcreator/internal/cli"

func main() {
	cli.Execute()
}
