// amicooked - developer skill assessment with a coaching agent
// License: MIT
// Copyright (c) 2026 amicooked contributors

package main

import (
	"fmt"
	"os"

	"github.com/Champion2005/amicooked/cmd/amicooked/commands"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "setup", "onboard":
		commands.RunSetup()
	case "chat", "agent":
		commands.RunChat(os.Args[2:])
	case "analyze":
		commands.RunAnalyze(os.Args[2:])
	case "start", "serve", "gateway":
		commands.RunStart()
	case "status":
		commands.RunStatus()
	case "version", "--version", "-v":
		fmt.Printf("%s amicooked v%s\n", commands.Logo, commands.Version)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Printf("%s amicooked - am I cooked? v%s\n\n", commands.Logo, commands.Version)
	fmt.Println("Usage: amicooked <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  setup       Interactive first-run configuration")
	fmt.Println("  start       Start the gateway (API, websocket chat, channels)")
	fmt.Println("  chat        Talk to the coach from the terminal")
	fmt.Println("  analyze     Score a metrics file and print the assessment")
	fmt.Println("  status      Check whether a gateway is up")
	fmt.Println("  version     Show version information")
}
