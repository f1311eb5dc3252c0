package policy

import (
	"reflect"
	"testing"

	"github.com/toanps/agentvault/internal/model"
)

func FuzzParse(f *testing.F) {
	// Seed with one example of every rule kind
	f.Add("Max $500/month for groceries")
	f.Add("Deny gaming purchases over $50")
	f.Add("Only allow groceries and medical")
	f.Add("Auto-approve utilities")
	f.Add("Anything over $1000 requires my approval")
	f.Add("Weekly allowance of $100 for entertainment")
	f.Add("Purchases over $200 require a reason")

	// Seed with edge shapes
	f.Add("")
	f.Add("$")
	f.Add("$99999999999999999999 per day max")
	f.Add("max $1,2,3.456 a day")
	f.Add("   \t\n  ")

	f.Fuzz(func(t *testing.T, text string) {
		// Must not panic on any input, and must stay deterministic
		first := Parse(text)
		second := Parse(text)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("non-deterministic parse of %q", text)
		}
		if first.Text != text {
			t.Fatalf("rule lost its source text: %q vs %q", first.Text, text)
		}

		// Whatever parsed, evaluation must not panic either
		Evaluate([]Rule{first}, 100_00, text, model.Spending{})
	})
}
