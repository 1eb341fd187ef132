package main

import "downpour/cmd"

func main() {
	cmd.Execute()
}
