package main

import "github.com/KaramelBytes/geoportal/cmd"

func main() {
	cmd.Execute()
}
