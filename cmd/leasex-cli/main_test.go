package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"leasex/crypto"
	"leasex/rpc"
)

type recordedCall struct {
	endpoint string
	token    string
	method   string
	params   interface{}
}

func stubRPC(t *testing.T, result string, rpcErr *rpc.RPCError) *[]recordedCall {
	t.Helper()
	var calls []recordedCall
	original := rpcCall
	rpcCall = func(_ context.Context, endpoint, token, method string, params, out interface{}) error {
		calls = append(calls, recordedCall{endpoint: endpoint, token: token, method: method, params: params})
		if rpcErr != nil {
			return rpcErr
		}
		if raw, ok := out.(*json.RawMessage); ok {
			*raw = json.RawMessage(result)
		}
		return nil
	}
	t.Cleanup(func() { rpcCall = original })
	return &calls
}

func TestUsageAndUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "Usage: leasex-cli") {
		t.Fatalf("usage not printed: %q", stderr.String())
	}
	stderr.Reset()
	if code := run([]string{"bogus"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "Unknown command: bogus") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestVoteCommand(t *testing.T) {
	calls := stubRPC(t, `{"id":3,"status":"PENDING"}`, nil)
	var stdout, stderr bytes.Buffer

	if code := run([]string{"vote", "--id", "3", "--vote", "maybe"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected invalid vote to fail")
	}
	if len(*calls) != 0 {
		t.Fatalf("unexpected RPC call")
	}

	code := run([]string{"vote", "--rpc", "http://node:8545", "--token", "tok", "--id", "3", "--vote", "approve"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("vote failed: %s", stderr.String())
	}
	if len(*calls) != 1 {
		t.Fatalf("expected one call, got %d", len(*calls))
	}
	got := (*calls)[0]
	if got.method != "dispute_vote" || got.token != "tok" || got.endpoint != "http://node:8545" {
		t.Fatalf("unexpected call %+v", got)
	}
	params := got.params.(map[string]interface{})
	if params["vote"] != "APPROVE" || params["disputeId"] != uint64(3) {
		t.Fatalf("unexpected params %+v", params)
	}
	if !strings.Contains(stdout.String(), `"status": "PENDING"`) {
		t.Fatalf("result not printed: %q", stdout.String())
	}
}

func TestRPCErrorIsReported(t *testing.T) {
	stubRPC(t, "", &rpc.RPCError{Code: -32010, Message: "dispute: resolution not ready"})
	var stdout, stderr bytes.Buffer
	if code := run([]string{"resolve", "1"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(stderr.String(), "Error -32010: dispute: resolution not ready") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestCallRejectsBadJSON(t *testing.T) {
	stubRPC(t, "null", nil)
	var stdout, stderr bytes.Buffer
	if code := run([]string{"call", "property_get", "{nope"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected failure")
	}
	if code := run([]string{"call", "property_get", `{"propertyId":0}`}, &stdout, &stderr); code != 0 {
		t.Fatalf("call failed: %s", stderr.String())
	}
}

func TestKeygenAndToken(t *testing.T) {
	t.Setenv(keyPassEnv, "correct horse")
	t.Setenv(jwtSecretEnv, "cli-test-secret")
	path := filepath.Join(t.TempDir(), "key.json")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"keygen", "--out", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("keygen failed: %s", stderr.String())
	}
	addr, err := crypto.DecodeAddress(strings.TrimSpace(stdout.String()))
	if err != nil {
		t.Fatalf("keygen printed invalid address: %v", err)
	}

	stdout.Reset()
	if code := run([]string{"token", "--keystore", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("token failed: %s", stderr.String())
	}
	if strings.Count(strings.TrimSpace(stdout.String()), ".") != 2 {
		t.Fatalf("expected a JWT, got %q", stdout.String())
	}

	stdout.Reset()
	if code := run([]string{"token", "--address", addr.String(), "--keystore", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected conflicting flags to fail")
	}
}
