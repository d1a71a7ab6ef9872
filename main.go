package main

import "poolprobe/cmd"

func main() {
	cmd.Execute()
}
