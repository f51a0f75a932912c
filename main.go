package main

import "github.com/pmarques/hemiciclo/cmd"

func main() {
	cmd.Execute()
}
