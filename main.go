package main

import "github.com/ValentinKolb/asyncsock/cmd"

func main() {
	cmd.Execute()
}
