// Package schemes recommends welfare schemes for a Forest Rights Act
// claimant using a fixed eligibility rule table.
package schemes

// ClaimGranted is the claim status that unlocks forest rights.
const ClaimGranted = "Granted"

// Claimant is the profile the rules read.
type Claimant struct {
	Name        string  `json:"name"`
	Father      string  `json:"father"`
	Village     string  `json:"village"`
	District    string  `json:"district"`
	State       string  `json:"state"`
	Patta       string  `json:"patta"`
	Survey      string  `json:"survey"`
	Coordinates string  `json:"coordinates"`
	LandAreaHa  float64 `json:"landArea"`
	ClaimStatus string  `json:"claimStatus" binding:"required"`

	SC              bool `json:"sc"`
	ST              bool `json:"st"`
	OtherVulnerable bool `json:"otherVulnerable"`

	IncomeLevel string  `json:"incomeLevel"`
	WaterIndex  float64 `json:"waterIndex"`
	Gender      string  `json:"gender"`
	Age         int     `json:"age"`

	VillagePopulation      int     `json:"villagePopulation"`
	VillageSTPercentage    float64 `json:"villageStPercentage"`
	AspirationalDistrict   bool    `json:"aspirationalDistrict"`
	VillageSTPopulation    int     `json:"villageStPopulation"`
	UnelectrifiedHousehold bool    `json:"unelectrifiedHousehold"`
	HealthFacilityKm       float64 `json:"healthFacilityDistanceKm"`
	Terrain                string  `json:"terrain"`
	NoPuccaHouse           bool    `json:"noPuccaHouse"`
	NoToilet               bool    `json:"noToilet"`
	PregnantOrLactating    bool    `json:"pregnantOrLactating"`
	ChildrenUnderSix       int     `json:"childrenUnderSix"`
	Student                bool    `json:"student"`
	YouthSHGOrVDVK         bool    `json:"youthShgVdvk"`
	FishermanOrCFRHolder   bool    `json:"fishermanCfrHolder"`
	LivestockInterest      bool    `json:"livestockInterest"`
	PRIMemberOrOfficial    bool    `json:"priMemberOfficial"`
	HomestayInterest       bool    `json:"homestayInterest"`
	SCDAffected            bool    `json:"scdAffected"`
}

// Summary is the short claimant view returned alongside recommendations.
type Summary struct {
	Name        string  `json:"name"`
	Father      string  `json:"father"`
	Village     string  `json:"village"`
	District    string  `json:"district"`
	State       string  `json:"state"`
	LandArea    float64 `json:"landArea"`
	ClaimStatus string  `json:"claimStatus"`
}

func (c Claimant) Summary() Summary {
	return Summary{
		Name:        c.Name,
		Father:      c.Father,
		Village:     c.Village,
		District:    c.District,
		State:       c.State,
		LandArea:    c.LandAreaHa,
		ClaimStatus: c.ClaimStatus,
	}
}

// DefaultClaimant is the sample claimant served when none is supplied.
func DefaultClaimant() Claimant {
	return Claimant{
		Name:                   "Ramesh",
		Father:                 "Sothan",
		Village:                "Kaltapally",
		District:               "Adilabad",
		State:                  "Telangana",
		Patta:                  "PAT-000123",
		Survey:                 "45/2",
		Coordinates:            "19.6354 N, 18.5371 E",
		LandAreaHa:             2.5,
		ClaimStatus:            ClaimGranted,
		ST:                     true,
		IncomeLevel:            "Low",
		WaterIndex:             0.25,
		Gender:                 "Male",
		Age:                    35,
		VillagePopulation:      600,
		VillageSTPercentage:    60,
		AspirationalDistrict:   true,
		VillageSTPopulation:    360,
		UnelectrifiedHousehold: true,
		HealthFacilityKm:       6,
		Terrain:                "Hilly",
		NoPuccaHouse:           true,
		NoToilet:               true,
		ChildrenUnderSix:       2,
		Student:                true,
		YouthSHGOrVDVK:         true,
		FishermanOrCFRHolder:   true,
		LivestockInterest:      true,
		PRIMemberOrOfficial:    true,
		HomestayInterest:       true,
		SCDAffected:            true,
	}
}
