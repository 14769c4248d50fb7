package options

// Worker engine bounds. Hash ceiling matches a 64-bit engine build.
const (
	maxHashMB     = 131072
	maxSkillLevel = 20
	maxThinkMS    = 5000
)

// EngineTable builds the stock option table for a worker engine. The given
// skill level and minimum thinking time become those options' defaults,
// clamped into their spin ranges; everything else carries the engine's
// shipped default.
func EngineTable(skill, minThinkMillis int) *Registry {
	skill = clamp(skill, 0, maxSkillLevel)
	minThinkMillis = clamp(minThinkMillis, 0, maxThinkMS)

	r := NewRegistry()
	r.AddSpin("Contempt", 24, -100, 100)
	r.AddCombo("Analysis Contempt", "Both", "Off", "White", "Black", "Both")
	r.AddSpin("Threads", 1, 1, 512)
	r.AddSpin("Hash", 16, 1, maxHashMB)
	r.AddButton("Clear Hash")
	r.AddCheck("Ponder", false)
	r.AddSpin("MultiPV", 1, 1, 500)
	r.AddSpin("Skill Level", skill, 0, maxSkillLevel)
	r.AddSpin("Move Overhead", 30, 0, 5000)
	r.AddSpin("Minimum Thinking Time", minThinkMillis, 0, maxThinkMS)
	r.AddSpin("Slow Mover", 84, 10, 1000)
	r.AddCheck("UCI_Chess960", false)
	return r
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
