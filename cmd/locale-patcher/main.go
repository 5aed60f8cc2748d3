package main

import "locale-patcher/internal/cli"

func main() {
	cli.Execute()
}
