package domain

import "encoding/json"

// CharacterSetup はプレイヤーが提出するロースター1体分の構成。
// Equipment はスロットID→アイテムIDの割り当て。空文字は未装備を表す。
type CharacterSetup struct {
	ID        string            `json:"id"`
	Level     int               `json:"level"`
	Equipment map[string]string `json:"equipment"`
}

func (c *CharacterSetup) UnmarshalJSON(data []byte) error {
	type alias CharacterSetup
	a := alias{Level: 1}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = CharacterSetup(a)
	return nil
}

// ParseSetup は提出ペイロードをパースする。構造不正は検証失敗として呼び出し側へ返す。
func ParseSetup(raw json.RawMessage) ([]CharacterSetup, error) {
	var setup []CharacterSetup
	if err := json.Unmarshal(raw, &setup); err != nil {
		return nil, err
	}
	return setup, nil
}
