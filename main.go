package main

import "github.com/itsmostafa/gotale/cmd"

func main() {
	cmd.Execute()
}
