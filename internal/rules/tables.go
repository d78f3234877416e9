package rules

// Tables holds the lexical rule tables the engine scores against. The
// defaults below ship with the binary; deployments can replace them from a
// YAML file via LoadTables.
type Tables struct {
	// Categories maps a category name to its keyword list. A match on any
	// keyword in any category adds the keyword increment.
	Categories map[string][]string `yaml:"categories"`
	// WeaponCategories names the categories whose keywords trigger the
	// weapon floor and participate in combination boosts.
	WeaponCategories []string `yaml:"weapon_categories"`
	// ViolenceCategory names the category used for the weapon+violence boost.
	ViolenceCategory string `yaml:"violence_category"`
	// TransactionVerbs participate in the weapon+transaction boost.
	TransactionVerbs []string `yaml:"transaction_verbs"`
	// NamedWeapons are specific weapon/model mentions that force the higher
	// score floor.
	NamedWeapons []string `yaml:"named_weapons"`
	// HighRiskPatterns are intent regexes matched against normalized text.
	HighRiskPatterns []string `yaml:"high_risk_patterns"`
	// MediumRiskPatterns add a smaller increment.
	MediumRiskPatterns []string `yaml:"medium_risk_patterns"`
}

// DefaultTables returns the built-in rule tables.
func DefaultTables() Tables {
	return Tables{
		Categories: map[string][]string{
			"firearms": {
				"gun", "rifle", "pistol", "firearm", "ammunition", "bullet", "shotgun",
				"handgun", "glock", "ak47", "ar15", "beretta", "wesson", "colt",
				"ruger", "remington", "winchester", "mossberg", "revolver", "carbine",
				"submachine", "assault rifle", "sniper", "silencer", "suppressor",
				"m16", "m4", "uzi", "mp5", "scar", "hk416", "deagle", "desert eagle",
				"mac10", "tec9", "draco", "choppa", "ammo", "hollow point", "fmj",
				"9mm", "556", "762", "50cal", "extended mag", "drum mag",
			},
			"explosives": {
				"bomb", "explosive", "grenade", "dynamite", "c4", "tnt", "semtex",
				"detonator", "pipe bomb", "molotov", "ied", "claymore", "rpg",
				"launcher", "mortar", "bazooka", "frag", "incendiary", "napalm",
				"thermite", "blasting cap", "det cord",
			},
			"violence": {
				"kill", "murder", "assassinate", "eliminate", "shoot", "shooting",
				"massacre", "slaughter", "execute", "take out", "whack", "headshot",
				"bodycount", "carnage", "bloodbath", "rampage", "spree",
			},
			"illegal_terms": {
				"smuggling", "black market", "illegal sale", "trafficking",
				"contraband", "untraceable", "cash only", "no questions",
				"private sale", "under the table", "no paperwork",
				"serial numbers filed", "ghost gun", "throwaway", "burner phone",
				"no id", "crypto payment", "prepaid card",
			},
		},
		WeaponCategories: []string{"firearms", "explosives"},
		ViolenceCategory: "violence",
		TransactionVerbs: []string{"buy", "sell", "trade", "purchase", "want", "need", "get"},
		NamedWeapons: []string{
			"glock", "ak47", "ar15", "m16", "m4", "uzi", "mp5", "beretta", "colt",
			"wesson", "remington", "winchester", "mossberg", "ruger", "scar", "draco",
		},
		HighRiskPatterns: []string{
			`\b(?:buy|sell|trade|purchase|get|want|need|looking for|acquire|seeking)\s+(?:guns?|weapons?|firearms?|pistols?|rifles?|glock|ak47|ar15|m16|m4|uzi|mp5)\b`,
			`\b(?:want|need)\s+to\s+(?:buy|get|purchase|acquire)\s+(?:a\s+)?(?:gun|weapon|firearm|pistol|rifle|glock|m16|ak47|ar15)\b`,
			`\b(?:sell|selling|trade|trading|offering)\s+(?:guns?|weapons?|firearms?|ammunition|ammo|bullets?)\b`,
			`\b(?:cash\s+only|no\s+questions?|untraceable|private\s+sale|ghost\s+gun|stolen\s+gun)\b`,
			`\b(?:buy|get|purchase)\s+(?:to\s+)?(?:kill|murder|harm|shoot|eliminate)\b`,
			`\b(?:illegal|black\s+market|under\s+the\s+table)\s+(?:guns?|weapons?|firearms?)\b`,
		},
		MediumRiskPatterns: []string{
			`\b(?:self\s+defense|protection|security)\s+(?:weapon|gun|firearm)\b`,
			`\b(?:hunting|sport|target\s+practice)\s+(?:rifle|gun|firearm)\b`,
		},
	}
}
