package main

import (
	"github.com/fuzun45/FBCM-LoadSetup-Software/cmd"
)

func main() {
	cmd.Execute()
}
