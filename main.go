package main

import (
	"Bt1Zen/cmd"
)

func main() {
	cmd.Execute()
}
