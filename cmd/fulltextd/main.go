package main

import (
	"gitlab.com/pietroski-software-company/lightning-fulltext/cmd/fulltextd/cmd"
)

func main() {
	cmd.Execute()
}
