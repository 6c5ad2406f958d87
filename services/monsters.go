// services/monsters.go
package services

import (
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

const lamportsPerSOLExp = -9

// Monster is the opponent guarding the vault at a given pot size.
type Monster struct {
	Tier              int              `json:"tier"`
	Name              string           `json:"name"`
	Code              string           `json:"code"`
	MinPot            decimal.Decimal  `json:"min_pot_sol"`
	MaxPot            *decimal.Decimal `json:"max_pot_sol"` // nil is unbounded
	HP                int              `json:"hp"`
	AttackPower       int              `json:"attack_power"`
	DefenseMultiplier float64          `json:"defense_multiplier"`
	VaultCrackChance  int              `json:"vault_crack_chance"`
	Sprite            string           `json:"sprite"`
	EvolutionOnly     bool             `json:"evolution_only,omitempty"`
}

func sol(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newMonster(m Monster) Monster {
	m.Code = slug.Make(m.Name)
	return m
}

// MonsterTiers are ordered by tier. The last one only appears by evolution.
var MonsterTiers = []Monster{
	newMonster(Monster{Tier: 1, Name: "Orc", MinPot: decimal.Zero, MaxPot: sol("0.01"), HP: 80, AttackPower: 15, DefenseMultiplier: 0.9, VaultCrackChance: 1, Sprite: "orc"}),
	newMonster(Monster{Tier: 2, Name: "Armored Orc", MinPot: *sol("0.01"), MaxPot: sol("0.02"), HP: 100, AttackPower: 18, DefenseMultiplier: 0.9, VaultCrackChance: 11, Sprite: "armored_orc"}),
	newMonster(Monster{Tier: 3, Name: "Elite Orc", MinPot: *sol("0.02"), MaxPot: sol("0.03"), HP: 130, AttackPower: 28, DefenseMultiplier: 0.8, VaultCrackChance: 1, Sprite: "elite_orc"}),
	newMonster(Monster{Tier: 4, Name: "Orc Rider", MinPot: *sol("0.03"), MaxPot: sol("0.04"), HP: 170, AttackPower: 35, DefenseMultiplier: 0.75, VaultCrackChance: 1, Sprite: "orc_rider"}),
	newMonster(Monster{Tier: 5, Name: "Werewolf", MinPot: *sol("0.04"), HP: 100, AttackPower: 45, DefenseMultiplier: 0.7, VaultCrackChance: 0, Sprite: "werewolf"}),
	newMonster(Monster{Tier: 6, Name: "Werebear", HP: 100, AttackPower: 55, DefenseMultiplier: 0.65, VaultCrackChance: 95, Sprite: "werebear", EvolutionOnly: true}),
}

// LamportsToSOL converts without float rounding.
func LamportsToSOL(lamports int64) decimal.Decimal {
	return decimal.New(lamports, lamportsPerSOLExp)
}

// MonsterForPot picks the tier whose range holds pot. Anything unmatched gets the Werewolf.
func MonsterForPot(potLamports int64) Monster {
	pot := LamportsToSOL(potLamports)
	for _, m := range MonsterTiers {
		if m.EvolutionOnly {
			continue
		}
		if pot.GreaterThanOrEqual(m.MinPot) && (m.MaxPot == nil || pot.LessThan(*m.MaxPot)) {
			return m
		}
	}
	return MonsterTiers[4]
}
