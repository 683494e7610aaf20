package main

import "Lyra/cmd"

func main() {
	cmd.Execute()
}
