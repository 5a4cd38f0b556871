package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/hallmail/hallmail/scripts/internal"
)

// Command represents a script that can be run
type Command struct {
	Name        string
	Description string
	Run         func() error
}

var commands = []Command{
	{
		Name:        "resync-customers",
		Description: "Reconcile every Stripe customer with the local tables",
		Run:         internal.ResyncCustomers,
	},
	{
		Name:        "resync-user",
		Description: "Reconcile the subscriptions and invoices of one user",
		Run:         internal.ResyncUser,
	},
}

func main() {
	var (
		listCommands bool
		cmdName      string
		userID       string
		concurrency  int
	)

	flag.BoolVar(&listCommands, "list", false, "List all available commands")
	flag.StringVar(&cmdName, "cmd", "", "Command to run")
	flag.StringVar(&userID, "user-id", "", "User ID for user operations")
	flag.IntVar(&concurrency, "concurrency", 0, "Parallel Stripe calls for bulk operations")

	flag.Parse()

	if listCommands {
		fmt.Println("Available commands:")
		for _, cmd := range commands {
			fmt.Printf("  %-20s %s\n", cmd.Name, cmd.Description)
		}
		return
	}

	if cmdName == "" {
		log.Fatal("Please specify a command to run using -cmd flag. Use -list to see available commands.")
	}

	if userID != "" {
		os.Setenv("USER_ID", userID)
	}
	if concurrency > 0 {
		os.Setenv("CONCURRENCY", strconv.Itoa(concurrency))
	}

	for _, cmd := range commands {
		if cmd.Name == cmdName {
			if err := cmd.Run(); err != nil {
				log.Fatalf("Error running command %s: %v", cmdName, err)
			}
			return
		}
	}

	log.Fatalf("Unknown command: %s. Use -list to see available commands.", cmdName)
}
