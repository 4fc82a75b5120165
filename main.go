package main

import "blob-uploader/cmd"

func main() {
	cmd.Execute()
}
