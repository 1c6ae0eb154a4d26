package main

import "github.com/apiwarden/apiwarden/cmd/apiwarden/cmd"

func main() {
	cmd.Execute()
}
