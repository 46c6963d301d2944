package main

import "forum/commands"

func main() {
	commands.Execute()
}
