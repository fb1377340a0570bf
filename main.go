package main

import "cinestream/cmd"

func main() {
	cmd.Execute()
}
