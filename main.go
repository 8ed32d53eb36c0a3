package main

import "github.com/papapumpkin/haloprep/cmd"

func main() {
	cmd.Execute()
}
