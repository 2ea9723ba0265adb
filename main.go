package main

import "github.com/theirongolddev/copilot-usage/cmd"

func main() {
	cmd.Execute()
}
