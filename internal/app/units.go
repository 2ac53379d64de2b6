package app

import (
	"fmt"
	"sort"
	"strings"

	"gatebook/pkg/domain"
)

// AddUnit registers a (block, houseNo) pair. Both fields are required
// after trimming; exact duplicates are rejected.
func (a *App) AddUnit(actor domain.User, block, houseNo string) (domain.Unit, error) {
	if err := a.authorize(actor, OpManageUnits); err != nil {
		return domain.Unit{}, err
	}
	block = strings.TrimSpace(block)
	houseNo = strings.TrimSpace(houseNo)
	if block == "" || houseNo == "" {
		return domain.Unit{}, ErrUnitFieldsRequired
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	exists, err := a.store.HasUnit(block, houseNo)
	if err != nil {
		return domain.Unit{}, fmt.Errorf("check unit: %w", err)
	}
	if exists {
		return domain.Unit{}, ErrDuplicateUnit
	}
	unit := domain.Unit{Block: block, HouseNo: houseNo}
	if err := a.store.SaveUnit(unit); err != nil {
		return domain.Unit{}, fmt.Errorf("save unit: %w", err)
	}
	return unit, nil
}

// DeleteUnit removes a unit if present. Users and visitors that reference
// the unit keep their "Block-HouseNo" label; references are not cascaded.
func (a *App) DeleteUnit(actor domain.User, block, houseNo string) error {
	if err := a.authorize(actor, OpManageUnits); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.DeleteUnit(strings.TrimSpace(block), strings.TrimSpace(houseNo)); err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	return nil
}

// ListUnits returns units ordered by block, then house number with a
// numeric-aware comparison so "9" sorts before "10".
func (a *App) ListUnits() ([]domain.Unit, error) {
	units, err := a.store.ListUnits()
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].Block != units[j].Block {
			return units[i].Block < units[j].Block
		}
		return naturalLess(units[i].HouseNo, units[j].HouseNo)
	})
	return units, nil
}

// naturalLess compares strings chunk by chunk, comparing digit runs by
// numeric value and everything else lexicographically.
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		aChunk, aRest, aNumeric := nextChunk(a)
		bChunk, bRest, bNumeric := nextChunk(b)
		if aNumeric && bNumeric {
			aTrimmed := strings.TrimLeft(aChunk, "0")
			bTrimmed := strings.TrimLeft(bChunk, "0")
			if len(aTrimmed) != len(bTrimmed) {
				return len(aTrimmed) < len(bTrimmed)
			}
			if aTrimmed != bTrimmed {
				return aTrimmed < bTrimmed
			}
		} else if aChunk != bChunk {
			return aChunk < bChunk
		}
		a, b = aRest, bRest
	}
	return a == "" && b != ""
}

func nextChunk(s string) (chunk, rest string, numeric bool) {
	if s == "" {
		return "", "", false
	}
	numeric = isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == numeric {
		i++
	}
	return s[:i], s[i:], numeric
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
