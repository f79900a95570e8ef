package main

import "github.com/zfogg/threadline/internal/cmd"

func main() {
	cmd.Execute()
}
