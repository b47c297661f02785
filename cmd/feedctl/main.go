// Command feedctl refreshes and inspects the projection store from the shell.
//
// Usage:
//
//	feedctl refresh              # sport catalog plus every active sport
//	feedctl refresh --sport 7
//	feedctl sports
//	feedctl projections --sport 7 --stat Points --page 1 --page-size 20
//	feedctl players --sport 7
//	feedctl games --sport 7
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
