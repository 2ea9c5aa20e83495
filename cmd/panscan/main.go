package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"pantrack/internal/ledger"
	"pantrack/internal/logging"
	"pantrack/internal/scan"
	"pantrack/internal/session"
)

const usage = `usage: panscan [-config path] <command>

commands:
  scan <raw>...     decode and submit one or more scanned QR payloads
  history <slip_id> print the chain-of-custody timeline for a slip
  finish            end the current scanning run
  status            report whether a run is active
`

func main() {
	_ = godotenv.Load()
	logging.ConfigureRuntime()

	cfgPath := flag.String("config", "panscan.toml", "path to client config")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*cfgPath, args); err != nil {
		fmt.Fprintf(os.Stderr, "panscan: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, args []string) error {
	cfg, err := loadRuntimeConfig(cfgPath)
	if err != nil {
		return err
	}

	clientCfg := ledger.DefaultClientConfig()
	clientCfg.BaseURL = cfg.LedgerURL
	clientCfg.Token = cfg.Token
	clientCfg.DriverName = cfg.DriverName
	clientCfg.RequestTimeout = cfg.Timeout
	client, err := ledger.NewClient(clientCfg)
	if err != nil {
		return err
	}

	store := session.NewFileStore(cfg.SessionFile)
	orch, err := scan.NewOrchestrator(client, store)
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch args[0] {
	case "scan":
		if len(args) < 2 {
			return fmt.Errorf("scan requires at least one raw payload")
		}
		return runScans(ctx, orch, args[1:])
	case "history":
		if len(args) != 2 {
			return fmt.Errorf("history requires exactly one slip id")
		}
		slipID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid slip id %q", args[1])
		}
		return printHistory(ctx, client, slipID)
	case "finish":
		if err := orch.Finish(); err != nil {
			return err
		}
		fmt.Println("scanning run finished")
		return nil
	case "status":
		fmt.Printf("run state: %s\n", orch.State())
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runScans(ctx context.Context, orch *scan.Orchestrator, raws []string) error {
	for _, raw := range raws {
		resp, err := orch.Scan(ctx, raw)
		if err != nil {
			return err
		}
		fmt.Printf("office %s, cases this run: %d\n", resp.CurrentOfficeCode, resp.ScannedCasesCount)
		for _, entry := range resp.Data {
			fmt.Printf("  case %s slip %s (%s) -> %s\n",
				entry.CaseNumber, entry.SlipNumber, entry.PatientName, entry.CurrentDriverLocation)
		}
	}
	return nil
}

func printHistory(ctx context.Context, client *ledger.Client, slipID int) error {
	rec, err := client.FetchHistory(ctx, slipID)
	if err != nil {
		return err
	}
	fmt.Printf("slip %s, currently at %s\n", rec.SlipNumber, rec.CurrentLocation)
	for _, entry := range rec.History {
		line := fmt.Sprintf("  %s  %s  by %s",
			entry.Timestamp.Format("2006-01-02 15:04"), entry.Location, entry.User)
		if entry.Receiver != "" {
			line += ", received by " + entry.Receiver
		}
		if entry.Notes != "" {
			line += " (" + strings.TrimSpace(entry.Notes) + ")"
		}
		fmt.Println(line)
	}
	return nil
}
