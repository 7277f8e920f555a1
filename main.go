package main

import "github.com/derickschaefer/gaflat/cmd"

func main() {
	cmd.Execute()
}
