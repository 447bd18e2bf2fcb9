package main

import "github.com/aifinance/finctl/cmd"

func main() {
	cmd.Execute()
}
