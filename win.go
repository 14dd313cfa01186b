package main

// VerdictKind says whether a game is over and how.
type VerdictKind string

const (
	VerdictOngoing     VerdictKind = "ongoing"
	VerdictFactionWins VerdictKind = "faction_wins"
	VerdictDraw        VerdictKind = "draw"
)

// Verdict is the outcome of a win evaluation. Terminal once the kind
// is not ongoing.
type Verdict struct {
	Kind    VerdictKind
	Faction Faction // set for faction wins
}

func (v Verdict) terminal() bool {
	return v.Kind != VerdictOngoing
}

// evaluateWin partitions the currently alive players by faction. It
// runs strictly after a resolution has been applied, after every
// single resolution; a faction can win at night or off a day vote.
func evaluateWin(g *Game) Verdict {
	counts := g.aliveByFaction()
	switch len(counts) {
	case 0:
		return Verdict{Kind: VerdictDraw}
	case 1:
		for f := range counts {
			return Verdict{Kind: VerdictFactionWins, Faction: f}
		}
		panic("unreachable")
	default:
		return Verdict{Kind: VerdictOngoing}
	}
}
