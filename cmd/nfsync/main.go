package main

import "nfsync/internal/cli"

func main() {
	cli.Execute()
}
