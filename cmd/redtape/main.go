package main

import "github.com/ppiankov/redtape/internal/cli"

func main() {
	cli.Execute()
}
