package main

import "github.com/mozdeb/mozdeb/cmd/mozdeb/cmd"

func main() {
	cmd.Execute()
}
