package main

import "github.com/Norgate-AV/autobuild/cmd"

func main() {
	cmd.Execute()
}
