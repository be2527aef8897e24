package main

import "github.com/bed-alerts/cmd/api/cmd"

func main() {
	cmd.Execute()
}
