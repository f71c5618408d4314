package batch

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/casefile"
	"github.com/ppiankov/redtape/internal/config"
	"github.com/ppiankov/redtape/internal/model"
	"github.com/ppiankov/redtape/internal/oracle"
)

func TestNewEngineDefaults(t *testing.T) {
	cfg := config.Default()

	eng, cleanup, err := NewEngine(context.Background(), cfg, "sha256:abc")
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer cleanup()

	if eng.Table == nil || eng.Prompts == nil || eng.Exclusions == nil {
		t.Fatal("engine missing table, prompts, or exclusions")
	}
	if eng.Provider == nil || eng.Payor == nil {
		t.Fatal("engine missing oracles")
	}
	if eng.IterationCap != cfg.IterationCap {
		t.Errorf("iteration cap = %d, want %d", eng.IterationCap, cfg.IterationCap)
	}
	if eng.ConfigHash != "sha256:abc" {
		t.Errorf("config hash = %q", eng.ConfigHash)
	}
	if eng.AuditDir == "" {
		t.Error("audit dir not resolved")
	}
	// Default mode is local and the default backend is a cloud endpoint.
	if !eng.RedactProvider || !eng.RedactPayor {
		t.Error("expected both roles redacted against a remote endpoint")
	}
}

func TestNewEngineRedactionOff(t *testing.T) {
	cfg := config.Default()
	cfg.Redaction = "off"

	eng, cleanup, err := NewEngine(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer cleanup()

	if eng.RedactProvider || eng.RedactPayor {
		t.Error("redaction flags set with mode off")
	}
}

func TestNewEngineScriptedBackendRejected(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.Backend = "scripted"

	_, _, err := NewEngine(context.Background(), cfg, "")
	if err == nil || !strings.Contains(err.Error(), "scripted backend") {
		t.Errorf("expected scripted backend rejection, got %v", err)
	}
}

func TestNewEngineUnknownProfile(t *testing.T) {
	cfg := config.Default()
	cfg.Profile = "no-such-posture"

	_, _, err := NewEngine(context.Background(), cfg, "")
	if err == nil || !strings.Contains(err.Error(), "load profile") {
		t.Errorf("expected profile error, got %v", err)
	}
}

func TestNewEngineOpensCache(t *testing.T) {
	cfg := config.Default()
	cfg.CachePath = filepath.Join(t.TempDir(), "replies.db")

	eng, cleanup, err := NewEngine(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, ok := eng.Provider.(*oracle.Cache); !ok {
		t.Errorf("provider not cache-wrapped: %T", eng.Provider)
	}
	if _, ok := eng.Payor.(*oracle.Cache); !ok {
		t.Errorf("payor not cache-wrapped: %T", eng.Payor)
	}
	if err := cleanup(); err != nil {
		t.Errorf("cleanup: %v", err)
	}
}

func TestAdjudicateRedactsTransport(t *testing.T) {
	var providerSaw []string
	eng := approvingEngine()
	inner := eng.Provider
	eng.Provider = oracle.Func(func(ctx context.Context, p oracle.Prompt) (oracle.Reply, error) {
		providerSaw = append(providerSaw, p.User)
		return inner.Invoke(ctx, p)
	})
	eng.RedactProvider = true

	c := &casefile.Case{
		CaseID: "case-phi",
		Patient: map[string]any{
			"age":             61,
			"phone":           "555-301-4417",
			"mrn":             "MRN: A8841-bc",
			"chief_complaint": "low back pain radiating to the left leg",
		},
	}

	res, _, err := eng.Adjudicate(context.Background(), c)
	if err != nil {
		t.Fatalf("Adjudicate: %v", err)
	}
	if res.Lines[0].Status != model.LineApproved {
		t.Fatalf("line status = %s", res.Lines[0].Status)
	}

	if len(providerSaw) == 0 {
		t.Fatal("provider oracle never invoked")
	}
	for _, prompt := range providerSaw {
		if strings.Contains(prompt, "555-301-4417") {
			t.Error("raw phone number crossed the transport")
		}
	}
}

func TestAdjudicateWithoutRedactionPassesRawPrompt(t *testing.T) {
	var sawPhone bool
	eng := approvingEngine()
	inner := eng.Provider
	eng.Provider = oracle.Func(func(ctx context.Context, p oracle.Prompt) (oracle.Reply, error) {
		if strings.Contains(p.User, "555-301-4417") {
			sawPhone = true
		}
		return inner.Invoke(ctx, p)
	})

	c := &casefile.Case{
		CaseID: "case-raw",
		Patient: map[string]any{
			"age":   61,
			"phone": "555-301-4417",
		},
	}

	if _, _, err := eng.Adjudicate(context.Background(), c); err != nil {
		t.Fatalf("Adjudicate: %v", err)
	}
	if !sawPhone {
		t.Error("expected the unredacted prompt to carry the phone number")
	}
}

func TestRedactedNegotiationAuditsCleanly(t *testing.T) {
	eng := approvingEngine()
	eng.RedactProvider = true
	eng.RedactPayor = true
	eng.AuditDir = t.TempDir()

	c := &casefile.Case{
		CaseID: "case-phi-audit",
		Patient: map[string]any{
			"age":   59,
			"phone": "555-301-4417",
		},
	}

	_, trailPath, err := eng.Adjudicate(context.Background(), c)
	if err != nil {
		t.Fatalf("Adjudicate: %v", err)
	}
	v := audit.Verify(trailPath)
	if !v.Valid {
		t.Errorf("trail invalid: %s", v.Error)
	}
}
