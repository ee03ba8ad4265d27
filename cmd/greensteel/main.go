package main

import "github.com/greensteel/gateway/cmd/greensteel/cmd"

func main() {
	cmd.Execute()
}
