package main

import "github.com/RobertoNeglia/NM4PDE-cluster-code/cmd"

func main() {
	cmd.Execute()
}
