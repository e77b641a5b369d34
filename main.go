package main

import "github.com/logiclint/logiclint/cmd"

func main() {
	cmd.Execute()
}
