package main

import "github.com/frahmantamala/archival-system/cmd"

func main() {
	cmd.Execute()
}
