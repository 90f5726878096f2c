package main

import (
	"github.com/memos-run/memos/cmd/memos/cmd"
)

func main() {
	cmd.Execute()
}
