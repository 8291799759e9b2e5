package main

import "github.com/bgbraido/confluence2md/cmd"

func main() {
	cmd.Execute()
}
