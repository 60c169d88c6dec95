package main

import "github.com/KaramelBytes/gradeloom-cli/cmd"

func main() {
	cmd.Execute()
}
