package main

import "github.com/sonarmark/sonarmark/cmd"

func main() {
	cmd.Execute()
}
