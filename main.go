package main

import "github.com/gaurav-prasanna/pagegate/cmd"

func main() {
	cmd.Execute()
}
