package main

import "giveaway/cmd"

func main() {
	cmd.Execute()
}
