package main

import "github.com/frahmantamala/account-admin/cmd"

func main() {
	cmd.Execute()
}
