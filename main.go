package main

import "github.com/dszqbsm/planning/cmd"

func main() {
	cmd.Execute()
}
