package domain

import "fmt"

// ゲーム共通の数値上限。レベルデータの全数値フィールドはこの範囲に収まる。
const (
	statBound          = 9999
	maxMercenaryPool   = 16
	maxPlacedEnemies   = 10
	maxEquipmentPack   = 100
	maxCharacterLevel  = 10
	maxSlotsPerChar    = 20
	maxAbilitiesPerChr = 20
	maxAbilitiesPerItm = 10
	maxLevelPoints     = 90
	maxMercsPerPlayer  = 10
)

// ValidateLevel はレベルデータの整合性を検査する。
// 短絡せず、全エントリを走査して違反を1件ずつ蓄積する。
// 戻り値の errors が空であれば有効。
func ValidateLevel(l *LevelData) (bool, []string) {
	var errs []string

	if d := l.Dialogue; d != nil {
		if d.PlayerMoney > statBound || d.PlayerMoney < -statBound {
			errs = append(errs, fmt.Sprintf("Invalid Money: %d", d.PlayerMoney))
		}
		if d.MaxMercenaries > maxMercsPerPlayer || d.MaxMercenaries < 1 {
			errs = append(errs, fmt.Sprintf("Invalid Max Mercs: %d", d.MaxMercenaries))
		}
		if d.LevelsAvailable > maxLevelPoints || d.LevelsAvailable < 0 {
			errs = append(errs, fmt.Sprintf("Invalid Level Points: %d", d.LevelsAvailable))
		}
	} else {
		errs = append(errs, "Missing dialogue section")
	}

	if len(l.Mercenaries) > maxMercenaryPool {
		errs = append(errs, fmt.Sprintf("Too many mercenaries in pool: %d/%d", len(l.Mercenaries), maxMercenaryPool))
	}
	for i := range l.Mercenaries {
		errs = append(errs, validateCharacter(&l.Mercenaries[i], fmt.Sprintf("Mercenary[%d]", i))...)
	}

	if len(l.Enemies) > maxPlacedEnemies {
		errs = append(errs, fmt.Sprintf("Too many pre-placed enemies: %d/%d", len(l.Enemies), maxPlacedEnemies))
	}
	for i := range l.Enemies {
		errs = append(errs, validateCharacter(&l.Enemies[i], fmt.Sprintf("Enemy[%d]", i))...)
	}

	if len(l.Equipment) > maxEquipmentPack {
		errs = append(errs, fmt.Sprintf("Shop Pack exceeds %d items: %d", maxEquipmentPack, len(l.Equipment)))
	}
	for i := range l.Equipment {
		errs = append(errs, validateItem(&l.Equipment[i], fmt.Sprintf("ShopItem[%d]", i))...)
	}

	if len(l.EnemyEquipment) > maxEquipmentPack {
		errs = append(errs, fmt.Sprintf("Enemy Pack exceeds %d items: %d", maxEquipmentPack, len(l.EnemyEquipment)))
	}
	for i := range l.EnemyEquipment {
		errs = append(errs, validateItem(&l.EnemyEquipment[i], fmt.Sprintf("EnemyItem[%d]", i))...)
	}

	return len(errs) == 0, errs
}

func validateCharacter(c *Character, label string) []string {
	var errs []string

	stats := []struct {
		name string
		val  int
	}{
		{"health", c.Health},
		{"attack", c.Attack},
		{"defence", c.Defence},
		{"speed", c.Speed},
		{"cost", c.Cost},
	}
	for _, s := range stats {
		if s.val > statBound || s.val < -statBound {
			errs = append(errs, fmt.Sprintf("%s %s out of bounds: %d", label, s.name, s.val))
		}
	}

	for name, val := range c.LevelGrowth {
		if val > statBound || val < -statBound {
			errs = append(errs, fmt.Sprintf("%s growth_%s out of bounds: %d", label, name, val))
		}
	}

	if c.Level < 1 || c.Level > maxCharacterLevel {
		errs = append(errs, fmt.Sprintf("%s level invalid: %d", label, c.Level))
	}
	if c.MaxLevel < 1 || c.MaxLevel > maxCharacterLevel {
		errs = append(errs, fmt.Sprintf("%s max_level invalid: %d", label, c.MaxLevel))
	}

	if len(c.Slots) > maxSlotsPerChar {
		errs = append(errs, fmt.Sprintf("%s too many slots: %d", label, len(c.Slots)))
	}
	if c.Abilities.Count > maxAbilitiesPerChr {
		errs = append(errs, fmt.Sprintf("%s too many total level abilities: %d", label, c.Abilities.Count))
	}

	return errs
}

func validateItem(it *Item, label string) []string {
	var errs []string

	if it.Cost > statBound || it.Cost < -statBound {
		errs = append(errs, fmt.Sprintf("%s cost OOB: %d", label, it.Cost))
	}
	for name, val := range it.Stats {
		if val > statBound || val < -statBound {
			errs = append(errs, fmt.Sprintf("%s stat %s OOB: %d", label, name, val))
		}
	}
	if it.Abilities.Count > maxAbilitiesPerItm {
		errs = append(errs, fmt.Sprintf("%s too many abilities: %d/%d", label, it.Abilities.Count, maxAbilitiesPerItm))
	}

	return errs
}
