package main

import "github.com/schemaforge/schemaforge/cmd"

func main() {
	cmd.Execute()
}
