package main

import "github.com/perarneng/autoboard/cmd"

func main() {
	cmd.Execute()
}
