package main

import "streamfi/cmd/streamfi/cmd"

func main() {
	cmd.Execute()
}
