package scoring

import (
	"fmt"

	"microcredit/core/types"
)

// FeatureGroup lists the raw columns scored for one service category
type FeatureGroup struct {
	Category types.ServiceCategory `json:"category"`

	// Columns are bucketed against population percentiles
	Columns []string `json:"columns"`

	// Binary are recency flags: 1 scores 5, anything else scores 1
	Binary []string `json:"binary,omitempty"`
}

// RequiredColumns returns every column the group reads
func (g FeatureGroup) RequiredColumns() []string {
	cols := make([]string, 0, len(g.Columns)+len(g.Binary))
	cols = append(cols, g.Columns...)
	return append(cols, g.Binary...)
}

// Catalog maps each service category to its feature group
type Catalog map[types.ServiceCategory]FeatureGroup

// Group returns the feature group of a category
func (c Catalog) Group(cat types.ServiceCategory) (FeatureGroup, error) {
	g, ok := c[cat]
	if !ok {
		return FeatureGroup{}, fmt.Errorf("no feature group for category %s", cat)
	}
	return g, nil
}

// Validate checks that every service category has at least one feature
func (c Catalog) Validate() error {
	for _, cat := range types.ServiceOrder {
		g, ok := c[cat]
		if !ok {
			return fmt.Errorf("catalog is missing category %s", cat)
		}
		if len(g.Columns)+len(g.Binary) == 0 {
			return fmt.Errorf("category %s has no features", cat)
		}
	}
	return nil
}

// DefaultCatalog is the feature assignment of the production scorecard
func DefaultCatalog() Catalog {
	return Catalog{
		types.ServiceMobileMoney: {
			Category: types.ServiceMobileMoney,
			Columns: []string{
				// transactions
				"MOB_MONEY_REVENUE",
				"TOTAL_SPENT_MOB_MONEY_ACCOUNT",
				"TOTAL_LOADING_MONEY_IN_MOB_MONEY",
				"TOTAL_CASHOUT_MOB_MONEY_ACCOUNT",
				"TOTAL_CASHOUT_MOB_MONEY_FOR_package_PURCHASE",
				"TOTAL_CASHOUT_MOB_MONEY_TRANSFER_MONEY",
				"REFILL_mobile_money_ACCOUNT",
				// subscriptions
				"NB_VOICE_PACKAGES_SUBS_VIA_MOB_MONEY",
				"NB_DATA_package_SUBS_VIA_MOB_MONEY",
				"NB_SMS_package_SUBS_VIA_MOB_MONEY",
				"NB_MIXED_package_SUBS_VIA_MOB_MONEY",
			},
		},
		types.ServiceData: {
			Category: types.ServiceData,
			Columns: []string{
				"PAID_DATA_VOLUME",
				"DATA_REVENUE",
				"FREE_DATA_VOLUME",
				"NB_DATA_PACKAGES_SUBSCRIPTIONS",
				"NB_DATA_package_SUBS_VIA_POS",
				"NB_DATA_package_SUBS_VIA_MAIN_ACCOUNT",
			},
			Binary: []string{"IS_DATA_RGS90"},
		},
		types.ServiceVoice: {
			Category: types.ServiceVoice,
			Columns: []string{
				"PAID_VOICE_TRAFFIC",
				"VOICE_REVENUE",
				"FREE_VOICE_TRAFFIC",
				"VOICE_TRAFFIC_ONNET",
				"VOICE_TRAFFIC_OFFNET",
				"VOICE_OUTGOING_TRAFFIC_INTERNATIONAL",
				"VOICE_INCOMING_TRAFFIC_INTERNATIONAL",
				"VOICE_OUTGOING_TRAFFIC_ONNET",
				"VOICE_INCOMING_TRAFFIC_ONNET",
				"VOICE_OUTGOING_TRAFFIC_OFFNET",
				"VOICE_INCOMING_TRAFFIC_OFFNET",
				"NB_CALLS_EMITTED_ONNET",
				"NB_CALLS_RECEIVED_ONNET",
				"NB_CALLS_EMITTED_OFFNET",
				"NB_CALLS_RECEIVED_OFFNET",
				"VOICE_PACKAGES_REVENUE",
				"NB_VOICE_PACKAGES_SUBSCRIPTIONS",
				"NB_VOICE_PACKAGES_SUBS_VIA_POS",
				"NB_VOICE_PACKAGES_SUBS_VIA_MAIN_ACCOUNT",
			},
		},
		types.ServiceSMS: {
			Category: types.ServiceSMS,
			Columns: []string{
				"SMS_REVENUE",
				"NB_SMS_SENT_ONNET",
				"NB_SMS_SENT_OFFNET",
				"NB_SMS_RECEIVED_ONNET",
				"NB_SMS_RECEIVED_OFFNET",
				"NB_SMS_SENT_INTERNATIONAL",
				"NB_SMS_RECEIVED_INTERNATIONAL",
				"SMS_PACKAGE_REVENUE",
				"NB_SMS_PACKAGES_SUBSCRIPTIONS",
				"NB_SMS_package_SUBS_VIA_POS",
				"NB_SMS_package_SUBS_VIA_MAIN_ACCOUNT",
			},
		},
		types.ServiceDigital: {
			Category: types.ServiceDigital,
			Columns:  []string{"DIGITAL_REVENUE"},
		},
	}
}
