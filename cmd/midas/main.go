package main

import "midas/cmd"

func main() {
	cmd.Execute()
}
