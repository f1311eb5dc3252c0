package audit

import (
	"os"
	"path/filepath"
	"testing"
)

func FuzzVerify(f *testing.F) {
	// Seed with a valid single-entry log
	f.Add([]byte(`{"ts":"2026-01-01T00:00:00.000Z","request_id":"r1","recipient":"alice","amount":100,"reason":"food","outcome":"approve","detail":"ok","rules_hash":"sha256:abc","prev_hash":"` + GenesisHash + `"}` + "\n"))

	// Seed with garbage shapes
	f.Add([]byte{})
	f.Add([]byte("not json\n"))
	f.Add([]byte(`{"prev_hash":"sha256:wrong"}` + "\n"))

	f.Fuzz(func(t *testing.T, data []byte) {
		path := filepath.Join(t.TempDir(), "audit.jsonl")
		if err := os.WriteFile(path, data, 0600); err != nil {
			t.Skip()
		}
		// Must not panic on any input
		Verify(path)
	})
}
