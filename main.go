package main

import "github.com/yoremi/cerberus-go/cmd"

func main() {
	cmd.Execute()
}
