package main

import (
	"github.com/essencekit/essence/internal/cmd"
)

func main() {
	cmd.Execute()
}
