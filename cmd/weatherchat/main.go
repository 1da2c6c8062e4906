// Package main provides the entry point for the weatherchat Telegram bot.
package main

import "os"

func main() {
	os.Exit(runMain())
}

func runMain() int {
	if err := newRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}
