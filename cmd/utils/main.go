package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/storefront/cmd/utils/internal/commands"
)

const (
	appName    = "storefront-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var positional []string
	for len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		positional = append(positional, args[0])
		args = args[1:]
	}

	config, err := aqm.LoadConfig("UTILS", args)
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := aqm.NewLogger(logLevel)

	ctx := context.Background()

	switch command {
	case "complete-order":
		if len(positional) < 2 {
			fmt.Printf("complete-order needs a table and an order id\n\n")
			printUsage()
			os.Exit(1)
		}
		if err := commands.CompleteOrder(ctx, config, logger, positional[0], positional[1]); err != nil {
			log.Fatalf("Complete order failed: %v", err)
		}

	case "clear-snapshots":
		var orderID string
		if len(positional) > 0 {
			orderID = positional[0]
		}
		if err := commands.ClearSnapshots(ctx, config, logger, orderID); err != nil {
			log.Fatalf("Clear snapshots failed: %v", err)
		}

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - storefront utility commands

Usage:
  %s <command> [arguments] [options]

Commands:
  complete-order <table> <order-id>   Publish an order completion event for a table
  clear-snapshots [order-id]          Remove stored order snapshots
  version                             Print version information
  help                                Show this help message

Environment Variables:
  UTILS_NATS_URL        NATS server URL (default: nats://localhost:4222)
  UTILS_DB_MONGO_URL    MongoDB connection URL (default: mongodb://localhost:27017)
  UTILS_DB_MONGO_NAME   Snapshot database (default: appetite_storefront)
  UTILS_LOG_LEVEL       Log level: debug, info, warn, error (default: info)

Examples:
  %s complete-order 7 64f1c2a9e4b0
  UTILS_DB_MONGO_URL=mongodb://localhost:27017 %s clear-snapshots

`, appName, appName, appName, appName)
}
