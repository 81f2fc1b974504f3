package main

import "github.com/jvs-project/tidy/internal/cli"

func main() {
	cli.Execute()
}
