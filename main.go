package main

import "github.com/nsyszr/rtdb/cmd"

func main() {
	cmd.Execute()
}
