package main

import "tome/cmd"

func main() {
	cmd.Execute()
}
