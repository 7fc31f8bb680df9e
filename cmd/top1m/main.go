package main

import "github.com/mchmarny/top1m/pkg/cli"

func main() {
	cli.Execute()
}
