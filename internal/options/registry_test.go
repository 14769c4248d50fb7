package options

import (
	"errors"
	"testing"
)

func TestSetValidatesByKind(t *testing.T) {
	r := EngineTable(20, 100)

	if err := r.Set("Skill Level", "5"); err != nil {
		t.Fatalf("spin set: %v", err)
	}
	if got := r.Int("Skill Level"); got != 5 {
		t.Fatalf("skill level = %d", got)
	}

	if err := r.Set("Skill Level", "21"); err == nil {
		t.Fatalf("out-of-range spin accepted")
	}
	if got := r.Int("Skill Level"); got != 5 {
		t.Fatalf("failed set mutated value: %d", got)
	}
	if err := r.Set("Skill Level", "fast"); err == nil {
		t.Fatalf("non-integer spin accepted")
	}

	if err := r.Set("Ponder", "true"); err != nil {
		t.Fatalf("check set: %v", err)
	}
	if err := r.Set("Ponder", "yes"); err == nil {
		t.Fatalf("non-boolean check accepted")
	}

	if err := r.Set("Analysis Contempt", "white"); err != nil {
		t.Fatalf("combo set: %v", err)
	}
	if got := r.Value("Analysis Contempt"); got != "White" {
		t.Fatalf("combo did not canonicalize: %q", got)
	}
	if err := r.Set("Analysis Contempt", "Sideways"); err == nil {
		t.Fatalf("unlisted combo value accepted")
	}

	err := r.Set("Nonexistent", "1")
	if !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("unknown option error = %v", err)
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	r := EngineTable(20, 100)
	if err := r.Set("skill level", "12"); err != nil {
		t.Fatalf("lower-case name rejected: %v", err)
	}
	if err := r.Set("SKILL LEVEL", "13"); err != nil {
		t.Fatalf("upper-case name rejected: %v", err)
	}
	if got := r.Int("Skill Level"); got != 13 {
		t.Fatalf("skill level = %d", got)
	}
}

func TestHooksFireInOrder(t *testing.T) {
	r := EngineTable(20, 100)

	var calls []string
	if err := r.OnChange("Hash", func(o *Option) error {
		calls = append(calls, "first:"+o.Value())
		return nil
	}); err != nil {
		t.Fatalf("OnChange: %v", err)
	}
	if err := r.OnChange("Hash", func(o *Option) error {
		calls = append(calls, "second:"+o.Value())
		return nil
	}); err != nil {
		t.Fatalf("OnChange: %v", err)
	}

	if err := r.Set("Hash", "64"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first:64" || calls[1] != "second:64" {
		t.Fatalf("hook calls = %v", calls)
	}

	// A failed validation must not fire hooks.
	calls = nil
	if err := r.Set("Hash", "0"); err == nil {
		t.Fatalf("out-of-range hash accepted")
	}
	if len(calls) != 0 {
		t.Fatalf("hooks fired on rejected set: %v", calls)
	}
}

func TestButtonFiresWithoutValue(t *testing.T) {
	r := EngineTable(20, 100)

	pressed := 0
	if err := r.OnChange("Clear Hash", func(o *Option) error {
		pressed++
		return nil
	}); err != nil {
		t.Fatalf("OnChange: %v", err)
	}
	if err := r.Set("Clear Hash", ""); err != nil {
		t.Fatalf("button press: %v", err)
	}
	if pressed != 1 {
		t.Fatalf("button hook ran %d times", pressed)
	}
	if got := r.Value("Clear Hash"); got != "" {
		t.Fatalf("button stored a value: %q", got)
	}
}

func TestHookErrorAbortsSet(t *testing.T) {
	r := EngineTable(20, 100)
	boom := errors.New("engine gone")
	if err := r.OnChange("Threads", func(o *Option) error { return boom }); err != nil {
		t.Fatalf("OnChange: %v", err)
	}
	err := r.Set("Threads", "2")
	if !errors.Is(err, boom) {
		t.Fatalf("hook error not propagated: %v", err)
	}
}

func TestEngineTableDefaultsAndOrder(t *testing.T) {
	r := EngineTable(17, 1000)

	if got := r.Int("Skill Level"); got != 17 {
		t.Fatalf("seeded skill = %d", got)
	}
	if got := r.Int("Minimum Thinking Time"); got != 1000 {
		t.Fatalf("seeded think time = %d", got)
	}
	if got := r.Int("Contempt"); got != 24 {
		t.Fatalf("contempt default = %d", got)
	}
	if got := r.Int("Slow Mover"); got != 84 {
		t.Fatalf("slow mover default = %d", got)
	}

	// Seeds outside the spin range are clamped, not rejected.
	if got := EngineTable(99, -1).Int("Skill Level"); got != 20 {
		t.Fatalf("clamped skill = %d", got)
	}
	if got := EngineTable(99, -1).Int("Minimum Thinking Time"); got != 0 {
		t.Fatalf("clamped think time = %d", got)
	}

	opts := r.Options()
	if len(opts) == 0 || opts[0].Name != "Contempt" {
		t.Fatalf("insertion order lost: %v", opts)
	}
	last := opts[len(opts)-1]
	if last.Name != "UCI_Chess960" {
		t.Fatalf("last option = %s", last.Name)
	}
}
