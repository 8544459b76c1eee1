package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"leasex/cmd/internal/passphrase"
	"leasex/crypto"
	"leasex/rpc"
)

const (
	rpcURLEnv    = "LEASEX_RPC_URL"
	rpcTokenEnv  = "LEASEX_RPC_TOKEN"
	jwtSecretEnv = "LEASEX_JWT_SECRET"
	keyPassEnv   = "LEASEX_KEY_PASS"
	callTimeout  = 30 * time.Second
)

type caller func(ctx context.Context, endpoint, token, method string, params, out interface{}) error

var rpcCall caller = func(ctx context.Context, endpoint, token, method string, params, out interface{}) error {
	return rpc.NewClient(endpoint, token).Call(ctx, method, params, out)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "keygen":
		return runKeygen(args[1:], stdout, stderr)
	case "token":
		return runToken(args[1:], stdout, stderr)
	case "balance":
		return runQuery(args[1:], stdout, stderr, "xtoken_balance", "address")
	case "fees":
		return runCall(append(args[1:], "escrow_fees"), stdout, stderr)
	case "dispute":
		return runQuery(args[1:], stdout, stderr, "dispute_get", "disputeId")
	case "vote":
		return runVote(args[1:], stdout, stderr)
	case "resolve":
		return runQuery(args[1:], stdout, stderr, "dispute_resolve", "disputeId")
	case "events":
		return runEvents(args[1:], stdout, stderr)
	case "call":
		return runCall(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.Join([]string{
		"Usage: leasex-cli <command> [--rpc URL] [--token TOKEN] [flags] [args]",
		"",
		"Commands:",
		"  keygen --out FILE                    create an encrypted key and print its address",
		"  token --keystore FILE | --address A  mint a bearer token (needs " + jwtSecretEnv + ")",
		"  balance ADDRESS                      XToken and wei balances",
		"  fees                                 fee schedule and voting parameters",
		"  dispute ID                           show a dispute",
		"  vote --id ID --vote APPROVE|REJECT   cast a vote (needs a token)",
		"  resolve ID                           trigger dispute resolution (needs a token)",
		"  events [--type T] [--limit N]        recent indexed events",
		"  call METHOD [JSON]                   raw JSON-RPC call",
		"",
		"Tokens are read from " + rpcTokenEnv + ". The endpoint defaults to " + rpcURLEnv + " or http://localhost:8545.",
	}, "\n")
}

// globalFlags holds the flags shared by every RPC command.
type globalFlags struct {
	endpoint string
	token    string
}

func newFlagSet(name string, stderr io.Writer, g *globalFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	endpoint := strings.TrimSpace(os.Getenv(rpcURLEnv))
	if endpoint == "" {
		endpoint = "http://localhost:8545"
	}
	if g != nil {
		fs.StringVar(&g.endpoint, "rpc", endpoint, "JSON-RPC endpoint")
		fs.StringVar(&g.token, "token", os.Getenv(rpcTokenEnv), "bearer token")
	}
	return fs
}

func printJSON(stdout, stderr io.Writer, v interface{}) int {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(out))
	return 0
}

func printError(stderr io.Writer, err error) int {
	var rpcErr *rpc.RPCError
	if errors.As(err, &rpcErr) {
		fmt.Fprintf(stderr, "Error %d: %s\n", rpcErr.Code, rpcErr.Message)
		if rpcErr.Data != nil {
			fmt.Fprintf(stderr, "  %v\n", rpcErr.Data)
		}
		return 1
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func invoke(g globalFlags, stdout, stderr io.Writer, method string, params interface{}) int {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	var result json.RawMessage
	if err := rpcCall(ctx, g.endpoint, g.token, method, params, &result); err != nil {
		return printError(stderr, err)
	}
	var pretty interface{}
	if len(result) == 0 || json.Unmarshal(result, &pretty) != nil {
		fmt.Fprintln(stdout, string(result))
		return 0
	}
	return printJSON(stdout, stderr, pretty)
}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("keygen", stderr, nil)
	out := fs.String("out", "", "keystore file to create")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*out) == "" {
		fmt.Fprintln(stderr, "Error: --out is required")
		return 1
	}
	if _, err := os.Stat(*out); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists\n", *out)
		return 1
	}
	pass, err := passphrase.NewSource(keyPassEnv, "new key").Get()
	if err != nil {
		return printError(stderr, err)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printError(stderr, err)
	}
	if err := crypto.SaveToKeystore(*out, key, pass); err != nil {
		return printError(stderr, err)
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("token", stderr, nil)
	keystorePath := fs.String("keystore", "", "keystore whose address becomes the token subject")
	address := fs.String("address", "", "bech32 address to use as the subject")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	secret := strings.TrimSpace(os.Getenv(jwtSecretEnv))
	if secret == "" {
		fmt.Fprintf(stderr, "Error: %s must be set\n", jwtSecretEnv)
		return 1
	}
	var subject crypto.Address
	switch {
	case *keystorePath != "" && *address != "":
		fmt.Fprintln(stderr, "Error: use either --keystore or --address")
		return 1
	case *keystorePath != "":
		pass, err := passphrase.NewSource(keyPassEnv, "key").Get()
		if err != nil {
			return printError(stderr, err)
		}
		key, err := crypto.LoadFromKeystore(*keystorePath, pass)
		if err != nil {
			return printError(stderr, err)
		}
		subject = key.PubKey().Address()
	case *address != "":
		addr, err := crypto.DecodeAddress(*address)
		if err != nil {
			return printError(stderr, err)
		}
		subject = addr
	default:
		fmt.Fprintln(stderr, "Error: --keystore or --address is required")
		return 1
	}
	token, err := rpc.IssueToken([]byte(secret), subject, *ttl)
	if err != nil {
		return printError(stderr, err)
	}
	fmt.Fprintln(stdout, token)
	return 0
}

// runQuery handles commands taking one positional argument that becomes the
// named parameter.
func runQuery(args []string, stdout, stderr io.Writer, method, field string) int {
	var g globalFlags
	fs := newFlagSet(method, stderr, &g)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: expected exactly one %s argument\n", field)
		return 1
	}
	raw := strings.TrimSpace(fs.Arg(0))
	var value interface{} = raw
	if field == "disputeId" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid dispute id %q\n", raw)
			return 1
		}
		value = id
	}
	return invoke(g, stdout, stderr, method, map[string]interface{}{field: value})
}

func runVote(args []string, stdout, stderr io.Writer) int {
	var g globalFlags
	fs := newFlagSet("vote", stderr, &g)
	id := fs.Uint64("id", 0, "dispute id")
	vote := fs.String("vote", "", "APPROVE or REJECT")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *id == 0 {
		fmt.Fprintln(stderr, "Error: --id is required")
		return 1
	}
	v := strings.ToUpper(strings.TrimSpace(*vote))
	if v != "APPROVE" && v != "REJECT" {
		fmt.Fprintln(stderr, "Error: --vote must be APPROVE or REJECT")
		return 1
	}
	return invoke(g, stdout, stderr, "dispute_vote", map[string]interface{}{"disputeId": *id, "vote": v})
}

func runEvents(args []string, stdout, stderr io.Writer) int {
	var g globalFlags
	fs := newFlagSet("events", stderr, &g)
	eventType := fs.String("type", "", "only events of this type")
	limit := fs.Int("limit", 20, "maximum events to return")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	params := map[string]interface{}{"limit": *limit}
	if t := strings.TrimSpace(*eventType); t != "" {
		params["types"] = []string{t}
	}
	return invoke(g, stdout, stderr, "events_recent", params)
}

func runCall(args []string, stdout, stderr io.Writer) int {
	var g globalFlags
	fs := newFlagSet("call", stderr, &g)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(stderr, "Error: usage: call METHOD [JSON]")
		return 1
	}
	var params interface{}
	if fs.NArg() == 2 {
		var decoded interface{}
		if err := json.Unmarshal([]byte(fs.Arg(1)), &decoded); err != nil {
			fmt.Fprintf(stderr, "Error: params must be a JSON object: %v\n", err)
			return 1
		}
		params = decoded
	}
	return invoke(g, stdout, stderr, fs.Arg(0), params)
}
