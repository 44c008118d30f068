package domain

import "fmt"

// ValidateSetup はプレイヤーの提出構成をレベル側の予算と照合する。
// レベル検証と違い最初の違反で打ち切り、その理由を返す。
// 有効なら (true, "")。
func ValidateSetup(setup []CharacterSetup, level *LevelData) (bool, string) {
	if level == nil || level.Dialogue == nil {
		return false, "Setup validation error: no active level data"
	}
	d := level.Dialogue

	mercPool := make(map[string]*Character, len(level.Mercenaries))
	for i := range level.Mercenaries {
		mercPool[level.Mercenaries[i].ID] = &level.Mercenaries[i]
	}
	itemPool := make(map[string]*Item, len(level.Equipment))
	for i := range level.Equipment {
		itemPool[level.Equipment[i].ID] = &level.Equipment[i]
	}

	if len(setup) > d.MaxMercenaries {
		return false, fmt.Sprintf("Too many mercenaries: %d/%d", len(setup), d.MaxMercenaries)
	}

	seen := make(map[string]struct{}, len(setup))
	totalLevelsSpent := 0
	totalEquipCost := 0

	for i := range setup {
		cs := &setup[i]
		if _, dup := seen[cs.ID]; dup {
			return false, fmt.Sprintf("Duplicate mercenary ID in setup: %s", cs.ID)
		}
		seen[cs.ID] = struct{}{}

		ref, ok := mercPool[cs.ID]
		if !ok {
			return false, fmt.Sprintf("Invalid mercenary ID in setup: %s", cs.ID)
		}

		// レベルは基準値からの引き上げのみ許可。引き下げによる予算稼ぎは不正。
		if cs.Level < ref.Level {
			return false, fmt.Sprintf("Character %s level below base: %d < %d", cs.ID, cs.Level, ref.Level)
		}
		totalLevelsSpent += cs.Level - ref.Level

		cost, reason := characterEquipCost(cs, ref, itemPool)
		if reason != "" {
			return false, reason
		}
		totalEquipCost += cost
	}

	if totalLevelsSpent > d.LevelsAvailable {
		return false, fmt.Sprintf("Level points budget exceeded: %d/%d", totalLevelsSpent, d.LevelsAvailable)
	}
	if totalEquipCost > d.PlayerMoney {
		return false, fmt.Sprintf("Money budget exceeded: %d/%d", totalEquipCost, d.PlayerMoney)
	}

	return true, ""
}

// characterEquipCost は1体分の装備を検査し、消費コストを返す。
// 手スロットは容量パッキングの対象: 片手アイテムは占有スロット数ぶん課金、
// 両手アイテムはペア単位（端数の1割り当てもペア1組分の容量とコストを消費）。
func characterEquipCost(cs *CharacterSetup, ref *Character, itemPool map[string]*Item) (int, string) {
	slots := make(map[string]*Slot, len(ref.Slots))
	handSlotCount := 0
	for i := range ref.Slots {
		s := &ref.Slots[i]
		slots[s.ID] = s
		if s.Type == SlotTypeHand {
			handSlotCount++
		}
	}

	handItemCounts := make(map[string]int)
	cost := 0

	for slotID, itemID := range cs.Equipment {
		if itemID == "" {
			continue
		}
		slot, ok := slots[slotID]
		if !ok {
			return 0, fmt.Sprintf("Mercenary %s has no slot: %s", cs.ID, slotID)
		}
		item, ok := itemPool[itemID]
		if !ok {
			return 0, fmt.Sprintf("Invalid item ID %s in slot %s", itemID, slotID)
		}

		if item.SlotType == ItemTypeTwoHanded {
			if slot.Type != SlotTypeHand {
				return 0, fmt.Sprintf("Two-handed item %s placed in non-hand slot %s", itemID, slotID)
			}
		} else if item.SlotType != slot.Type {
			return 0, fmt.Sprintf("Item %s (type %s) incompatible with slot %s (type %s)", itemID, item.SlotType, slotID, slot.Type)
		}

		if slot.Type == SlotTypeHand {
			handItemCounts[itemID]++
		} else {
			cost += item.Cost
		}
	}

	handUsage := 0
	for itemID, count := range handItemCounts {
		item := itemPool[itemID]
		if item.SlotType == ItemTypeTwoHanded {
			// 両手持ち: 2スロット割り当てで購入1単位
			instances := (count + 1) / 2
			handUsage += instances * 2
			cost += instances * item.Cost
		} else {
			handUsage += count
			cost += count * item.Cost
		}
	}
	if handUsage > handSlotCount {
		return 0, fmt.Sprintf("Mercenary %s hand capacity exceeded: %d/%d", cs.ID, handUsage, handSlotCount)
	}

	return cost, ""
}
