package main

import "github.com/petrijr/orderdesk/cmd"

func main() {
	cmd.Execute()
}
