package main

import "github.com/rotblauer/posacc/cmd"

func main() {
	cmd.Execute()
}
