// Package redtape provides in-process prior-auth adjudication for Go
// programs. It embeds the negotiation engine directly: a Client loads
// the run config, assembles the oracle stack, and drives cases through
// the same review levels, audit trail, and friction accounting as the
// redtape binary, without a subprocess.
//
// Usage:
//
//	rt, err := redtape.New(redtape.WithProfile("strict"))
//	if err != nil { ... }
//	defer rt.Close()
//
//	result, err := rt.RunFile(ctx, "case.json")
//	if err != nil { ... }
//	if result.Approved() {
//	    fmt.Println("authorized:", result.AuditTrail)
//	}
//
// Evaluation harnesses can script both sides of the negotiation and
// skip the LLM backend entirely:
//
//	result, err := rt.Run(ctx, caseJSON,
//	    redtape.RunWithScript(providerTurns, payorTurns))
//
// External users import github.com/ppiankov/redtape/sdk/go/redtape.
package redtape
