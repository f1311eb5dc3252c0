// agentvault holds a pool of funds behind hard spending guardrails and
// serves disbursement requests to AI agents over MCP. The agent asks;
// the vault decides.
package main

import "github.com/toanps/agentvault/internal/cli"

func main() {
	cli.Execute()
}
