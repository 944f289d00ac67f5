package main

import "github.com/mcoot/partycasino/internal/cli"

func main() {
	cli.Execute()
}
