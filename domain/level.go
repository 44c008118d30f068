package domain

import "encoding/json"

// LevelData はホストが START_GAME で持ち込むレベル内容の構造化レコード。
// 境界でパースし、コアロジックは検証済みのフィールドにのみ触れる。
type LevelData struct {
	Dialogue       *Dialogue   `json:"dialogue"`
	Mercenaries    []Character `json:"mercenaries"`
	Enemies        []Character `json:"enemies"`
	Equipment      []Item      `json:"equipment"`
	EnemyEquipment []Item      `json:"enemy_equipment"`
}

// Dialogue はレベルの予算セクション。欠落はそれ自体が検証エラーになる。
type Dialogue struct {
	PlayerMoney     int `json:"player_money"`
	MaxMercenaries  int `json:"max_mercenaries"`
	LevelsAvailable int `json:"levels_available"`
}

// Character は傭兵プールまたは敵リストの1エントリ。
type Character struct {
	ID          string         `json:"id"`
	Health      int            `json:"health"`
	Attack      int            `json:"attack"`
	Defence     int            `json:"defence"`
	Speed       int            `json:"speed"`
	Cost        int            `json:"cost"`
	Level       int            `json:"level"`
	MaxLevel    int            `json:"max_level"`
	LevelGrowth map[string]int `json:"level_growth"`
	Slots       []Slot         `json:"slots"`
	Abilities   AbilityTable   `json:"level_abilities"`
}

// UnmarshalJSON は省略フィールドに既定値を与える。level / max_level の既定は 1。
func (c *Character) UnmarshalJSON(data []byte) error {
	type alias Character
	a := alias{Level: 1, MaxLevel: 1}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = Character(a)
	return nil
}

// Slot は装備スロットの参照定義。Type は "hand" / "body" などのスロット種別。
type Slot struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

const (
	// SlotTypeHand は手スロット。容量パッキングの対象になる。
	SlotTypeHand = "hand"
	// ItemTypeTwoHanded は両手持ちアイテム。hand スロットにのみ装着可能。
	ItemTypeTwoHanded = "two_handed"
)

// Item はショップまたは敵装備パックの1アイテム。
type Item struct {
	ID        string         `json:"id"`
	Cost      int            `json:"cost"`
	SlotType  string         `json:"slot_type"`
	Stats     map[string]int `json:"stats"`
	Abilities AbilitySet     `json:"abilities"`
}

// AbilityTable はキャラクターのレベル別アビリティ表。
// レベルキー→アビリティ辞書の2段構造と、フラットな配列の両方を受け付け、
// 検証に必要な総数のみを保持する。
type AbilityTable struct {
	Count int
}

func (t *AbilityTable) UnmarshalJSON(data []byte) error {
	t.Count = 0
	var byLevel map[string]json.RawMessage
	if err := json.Unmarshal(data, &byLevel); err == nil {
		for _, raw := range byLevel {
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(raw, &inner); err == nil {
				t.Count += len(inner)
			}
		}
		return nil
	}
	var flat []json.RawMessage
	if err := json.Unmarshal(data, &flat); err == nil {
		t.Count = len(flat)
	}
	// どちらの形でもなければ 0 件として扱う
	return nil
}

// AbilitySet はアイテムのアビリティ集合。辞書・配列どちらの形でも件数だけを数える。
type AbilitySet struct {
	Count int
}

func (s *AbilitySet) UnmarshalJSON(data []byte) error {
	s.Count = 0
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		s.Count = len(obj)
		return nil
	}
	var flat []json.RawMessage
	if err := json.Unmarshal(data, &flat); err == nil {
		s.Count = len(flat)
	}
	return nil
}
