package domain

// Outcome は自己申告された対戦結果。
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeTie  Outcome = "tie"
)

// ValidOutcome は境界で受理してよい結果値かどうかを判定する。
func ValidOutcome(o Outcome) bool {
	switch o {
	case OutcomeWin, OutcomeLoss, OutcomeTie:
		return true
	}
	return false
}

// Standings はトーナメント照合の結果。
// Scores は相互に整合した申告ペアのみから毎回ゼロから再計算される。
type Standings struct {
	Scores        map[string]int
	VerifiedPairs int
	TotalPairs    int
	Final         bool
}

// Reconcile はプレイヤー集合と申告行列から検証済みスコアを導出する。
// 両者の申告が揃ったペアのみ採点対象:
// win/loss の対なら勝者に2点、tie/tie なら双方に1点、
// それ以外の組み合わせは係争として両者0点（ただし verified には数える）。
// Final は全ペアが両側から申告された時点で真になる。
func Reconcile(players []string, results map[string]map[string]Outcome) Standings {
	scores := make(map[string]int, len(players))
	for _, p := range players {
		scores[p] = 0
	}

	verified := 0
	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			p1, p2 := players[i], players[j]
			res1, ok1 := lookup(results, p1, p2)
			res2, ok2 := lookup(results, p2, p1)
			if !ok1 || !ok2 {
				continue
			}
			verified++

			switch {
			case res1 == OutcomeWin && res2 == OutcomeLoss:
				scores[p1] += 2
			case res1 == OutcomeLoss && res2 == OutcomeWin:
				scores[p2] += 2
			case res1 == OutcomeTie && res2 == OutcomeTie:
				scores[p1]++
				scores[p2]++
			default:
				// 係争。安全側に倒し両者とも加点しない。
			}
		}
	}

	n := len(players)
	total := n * (n - 1) / 2

	return Standings{
		Scores:        scores,
		VerifiedPairs: verified,
		TotalPairs:    total,
		Final:         verified >= total,
	}
}

func lookup(results map[string]map[string]Outcome, reporter, opponent string) (Outcome, bool) {
	row, ok := results[reporter]
	if !ok {
		return "", false
	}
	res, ok := row[opponent]
	return res, ok
}
