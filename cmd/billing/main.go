// billing is the operator CLI: serve, migrate, verify-db, verify-ai, expire-quotations,
// baht-text and calc.
package main

import "sme-billing/internal/adapters/cli"

func main() {
	cli.Execute()
}
