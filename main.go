package main

import "github.com/shaharia-lab/mc-webhooks/cmd"

func main() {
	cmd.Execute()
}
