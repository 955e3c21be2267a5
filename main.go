package main

import "camtrap-cli/cmd"

func main() {
	cmd.Execute()
}
