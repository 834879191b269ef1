package main

import "github.com/ridoystarlord/evolve/cmd"

func main() {
	cmd.Execute()
}
