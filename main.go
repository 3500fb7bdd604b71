package main

import "logdex/cmd"

func main() {
	cmd.Execute()
}
