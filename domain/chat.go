package domain

import "fmt"

// chatHistoryLimit はロビー・ルーム共通のチャット履歴保持件数。
const chatHistoryLimit = 20

// ChatLog は直近のチャット発言を保持する有界バッファ。
type ChatLog struct {
	entries []string
}

// Append は発言を整形して追記し、整形後の文字列を返す。
// 上限を超えた分は古いものから捨てられる。
func (l *ChatLog) Append(sender, text string) string {
	formatted := fmt.Sprintf("[%s]: %s", sender, text)
	l.entries = append(l.entries, formatted)
	if len(l.entries) > chatHistoryLimit {
		l.entries = l.entries[len(l.entries)-chatHistoryLimit:]
	}
	return formatted
}

// Entries は保持中の発言を古い順に返す。
func (l *ChatLog) Entries() []string {
	return l.entries
}
