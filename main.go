package main

import "github.com/dblp-tools/faculty-harvester/cmd"

func main() {
	cmd.Execute()
}
