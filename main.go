package main

import "timereport/cmd"

func main() {
	cmd.Execute()
}
