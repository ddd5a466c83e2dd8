package main

import "github.com/lexyhq/lexy/cmd/lexy"

func main() {
	lexy.Execute()
}
