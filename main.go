package main

import "github.com/decarvalhoe/meetinity/cmd"

func main() {
	cmd.Execute()
}
