package rules

// file is the HCL schema of a rules file. Every attribute is optional so a
// file only states what differs from Default.
type file struct {
	ReportingPeriod *string `hcl:"reporting_period,optional"`

	Filter       *filterBlock       `hcl:"filter,block"`
	Profile      *profileBlock      `hcl:"profile,block"`
	Segmentation *segmentationBlock `hcl:"segmentation,block"`
	Allocation   *allocationBlock   `hcl:"allocation,block"`
	BonusMalus   *bonusMalusBlock   `hcl:"bonus_malus,block"`
	Features     []featureBlock     `hcl:"features,block"`
}

type filterBlock struct {
	MinAge                *int    `hcl:"min_age,optional"`
	MaxAge                *int    `hcl:"max_age,optional"`
	RegistrationStatus    *string `hcl:"registration_status,optional"`
	RequireMobMoney90Days *bool   `hcl:"require_mob_money_90_days,optional"`
}

type profileBlock struct {
	MissingScore *string `hcl:"missing_score,optional"`
}

type segmentationBlock struct {
	Weights []int `hcl:"weights,optional"`
}

type allocationBlock struct {
	Weights     []int          `hcl:"weights,optional"`
	MinScore    *int           `hcl:"min_score,optional"`
	MaxScore    *int           `hcl:"max_score,optional"`
	Extrapolate *bool          `hcl:"extrapolate,optional"`
	Products    []productBlock `hcl:"product,block"`
}

type productBlock struct {
	Category string  `hcl:"category,label"`
	Loan     string  `hcl:"loan,label"`
	Min      float64 `hcl:"min"`
	Max      float64 `hcl:"max"`
}

type bonusMalusBlock struct {
	StrongAbilityToBorrow   *float64 `hcl:"strong_ability_to_borrow,optional"`
	StrongRepaymentCapacity *float64 `hcl:"strong_repayment_capacity,optional"`
	AbilityToBorrow         *float64 `hcl:"ability_to_borrow,optional"`
	SplitNegativeSecond     *bool    `hcl:"split_negative_second,optional"`
}

type featureBlock struct {
	Category string   `hcl:"category,label"`
	Columns  []string `hcl:"columns"`
	Binary   []string `hcl:"binary,optional"`
}
