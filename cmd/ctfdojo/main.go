package main

import "ctfdojo/internal/cli"

func main() {
	cli.Execute()
}
