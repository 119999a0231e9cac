package main

import "github.com/deltabot/delta/cmd"

func main() {
	cmd.Execute()
}
