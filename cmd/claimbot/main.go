// Package main provides the entry point for the claimbot CLI.
//
// claimbot claims the rewards of every task of a list of accounts, cycle
// after cycle. Requests are tunnelled through a rotating proxy pool and
// fall back to a direct connection when every proxy failed.
//
// Usage:
//
//	claimbot                       # interactive menu
//	claimbot run [--accounts]
//	claimbot create-accounts -n 3
//	claimbot history --markdown
//
// See --help for all available options.
package main

// main is the entry point for claimbot.
func main() {
	Execute()
}
