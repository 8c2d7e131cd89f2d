package main

import "github.com/shouni/go-link-checker/cmd"

func main() {
	cmd.Execute()
}
