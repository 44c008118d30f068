package domain

// Config はルーム設定のフラットなレコード。変更があるたびに全員へそのまま配信される。
type Config struct {
	MaxPlayers          int    `json:"max_players"`
	QuickMatchAllowed   bool   `json:"quick_match_allowed"`
	EquipTimer          int    `json:"equip_timer"` // 分
	LevelName           string `json:"level_name"`
	IsRandom            bool   `json:"is_random"`
	MercsMin            int    `json:"mercs_min"`
	MercsMax            int    `json:"mercs_max"`
	CharMin             int    `json:"char_min"`
	CharMax             int    `json:"char_max"`
	MoneyMin            int    `json:"money_min"`
	MoneyMax            int    `json:"money_max"`
	LevelsMin           int    `json:"levels_min"`
	LevelsMax           int    `json:"levels_max"`
	CharPoolSize        int    `json:"char_pool_size"`
	CharVarietyMin      int    `json:"char_variety_min"`
	CharVarietyMax      int    `json:"char_variety_max"`
	EquipVarietyMin     int    `json:"equip_variety_min"`
	EquipVarietyMax     int    `json:"equip_variety_max"`
	ItemMin             int    `json:"item_min"`
	ItemMax             int    `json:"item_max"`
	SetupCharacterCount int    `json:"setup_character_count"`
	SetupEquipmentCount int    `json:"setup_equipment_count"`
}

// DefaultConfig は新規ルームの既定設定。
func DefaultConfig() Config {
	return Config{
		MaxPlayers:        2,
		QuickMatchAllowed: true,
		EquipTimer:        15,
		LevelName:         "None",
		IsRandom:          false,
		MercsMin:          3,
		MercsMax:          7,
		CharMin:           4,
		CharMax:           12,
		MoneyMin:          500,
		MoneyMax:          2000,
		LevelsMin:         5,
		LevelsMax:         20,
		CharPoolSize:      16,
		CharVarietyMin:    -100,
		CharVarietyMax:    100,
		EquipVarietyMin:   -100,
		EquipVarietyMax:   100,
		ItemMin:           30,
		ItemMax:           70,
	}
}

// ConfigPatch はホストからの部分更新。nil のフィールドは変更なしを表す。
type ConfigPatch struct {
	MaxPlayers          *int    `json:"max_players"`
	QuickMatch          *bool   `json:"quick_match"`
	EquipTimer          *int    `json:"equip_timer"`
	LevelName           *string `json:"level_name"`
	IsRandom            *bool   `json:"is_random"`
	MercsMin            *int    `json:"mercs_min"`
	MercsMax            *int    `json:"mercs_max"`
	CharMin             *int    `json:"char_min"`
	CharMax             *int    `json:"char_max"`
	MoneyMin            *int    `json:"money_min"`
	MoneyMax            *int    `json:"money_max"`
	LevelsMin           *int    `json:"levels_min"`
	LevelsMax           *int    `json:"levels_max"`
	CharPoolSize        *int    `json:"char_pool_size"`
	CharVarietyMin      *int    `json:"char_variety_min"`
	CharVarietyMax      *int    `json:"char_variety_max"`
	EquipVarietyMin     *int    `json:"equip_variety_min"`
	EquipVarietyMax     *int    `json:"equip_variety_max"`
	ItemMin             *int    `json:"item_min"`
	ItemMax             *int    `json:"item_max"`
	SetupCharacterCount *int    `json:"setup_character_count"`
	SetupEquipmentCount *int    `json:"setup_equipment_count"`
}

const (
	minEquipTimer = 1
	maxEquipTimer = 30
)

// Apply はパッチを設定へ反映し、1つでも変化したかどうかを返す。
// max_players を現在の人数未満へ縮める要求は黙って無視する。
// equip_timer は [1,30] に丸める。
func (c *Config) Apply(p ConfigPatch, memberCount int) bool {
	changed := false

	if p.MaxPlayers != nil && *p.MaxPlayers > 0 && *p.MaxPlayers >= memberCount {
		c.MaxPlayers = *p.MaxPlayers
		changed = true
	}
	if p.QuickMatch != nil {
		c.QuickMatchAllowed = *p.QuickMatch
		changed = true
	}
	if p.EquipTimer != nil {
		c.EquipTimer = min(maxEquipTimer, max(minEquipTimer, *p.EquipTimer))
		changed = true
	}
	if p.LevelName != nil {
		c.LevelName = *p.LevelName
		changed = true
	}
	if p.IsRandom != nil {
		c.IsRandom = *p.IsRandom
		changed = true
	}

	intFields := []struct {
		src *int
		dst *int
	}{
		{p.MercsMin, &c.MercsMin},
		{p.MercsMax, &c.MercsMax},
		{p.CharMin, &c.CharMin},
		{p.CharMax, &c.CharMax},
		{p.MoneyMin, &c.MoneyMin},
		{p.MoneyMax, &c.MoneyMax},
		{p.LevelsMin, &c.LevelsMin},
		{p.LevelsMax, &c.LevelsMax},
		{p.CharPoolSize, &c.CharPoolSize},
		{p.CharVarietyMin, &c.CharVarietyMin},
		{p.CharVarietyMax, &c.CharVarietyMax},
		{p.EquipVarietyMin, &c.EquipVarietyMin},
		{p.EquipVarietyMax, &c.EquipVarietyMax},
		{p.ItemMin, &c.ItemMin},
		{p.ItemMax, &c.ItemMax},
		{p.SetupCharacterCount, &c.SetupCharacterCount},
		{p.SetupEquipmentCount, &c.SetupEquipmentCount},
	}
	for _, f := range intFields {
		if f.src != nil {
			*f.dst = *f.src
			changed = true
		}
	}

	return changed
}
