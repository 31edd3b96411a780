package schemes

// Thresholds used by the rule table.
const (
	minVillagePopulation   = 500
	minVillageSTPercentage = 50
	minVillageSTPopulation = 50
	lowWaterIndex          = 0.3
	smallHoldingHa         = 2.5
)

// Recommend returns the schemes c is eligible for, in rule table order.
// Overlapping rules, such as the two water index priorities, each add their
// own line.
func Recommend(c Claimant) []string {
	schemes := []string{}
	add := func(s ...string) { schemes = append(schemes, s...) }
	granted := c.ClaimStatus == ClaimGranted
	stDominated := c.VillageSTPercentage >= minVillageSTPercentage
	aspirational := c.AspirationalDistrict && c.VillageSTPopulation >= minVillageSTPopulation

	// Forest rights.
	if granted {
		add("Individual Forest Rights - Title to forest land under occupation (up to 4 ha)")
		if c.ST {
			add("Community Forest Rights - Nistar, grazing, MFP collection, habitat for PTGs")
		}
		if stDominated || aspirational {
			add("Community Forest Resource Rights - Management and conservation authority")
		}
	}

	// Core centrally sponsored schemes.
	if granted {
		add("National Social Assistance Programme (NSAP)",
			"Mahatma Gandhi National Rural Employment Guarantee Programme (MGNREGA)")
		if c.SC {
			add("Umbrella Scheme for Development of Scheduled Castes")
		}
		if c.ST {
			add("Umbrella Programme for Development of Scheduled Tribes")
		}
		if c.OtherVulnerable {
			add("Umbrella Programme for Development of Other Vulnerable Groups")
		}
	}

	// DAJGUA village interventions.
	if (c.VillagePopulation >= minVillagePopulation && stDominated) || aspirational {
		add("Village Eligible for DAJGUA Interventions")
		if c.ST {
			if c.NoPuccaHouse {
				add("Priority: PMAY-G for low-income ST HH")
			}
			if c.WaterIndex < lowWaterIndex {
				add("Priority: JJM due to low water index")
			}
			if c.UnelectrifiedHousehold {
				add("Eligible: House Electrification under RDSS")
			}
		}
	}

	// Other schemes.
	if granted && c.LandAreaHa <= smallHoldingHa {
		add("Pradhan Mantri Krishi Sinchai Yojana (Micro-irrigation)",
			"PM Kisan Samman Nidhi (Income Support)")
	}
	if c.WaterIndex < lowWaterIndex {
		add("Priority: Jal Jeevan Mission / Borewell schemes (low water index)")
	}
	if c.IncomeLevel == "Low" || c.NoPuccaHouse || c.NoToilet {
		add("PM Awas Yojana – PMAY (Rural Housing Assistance)",
			"Swachh Bharat Mission – SBM Rural/Urban (Sanitation)")
	}
	return schemes
}
