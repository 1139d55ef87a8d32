package main

import "github.com/caisdata/cais/cmd"

func main() {
	cmd.Execute()
}
