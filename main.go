package main

import "github.com/edupanel/apiserver/cmd"

func main() {
	cmd.Execute()
}
